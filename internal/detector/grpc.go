package detector

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// detectMethod is the fully-qualified gRPC method invoked on the peer. The
// teacher's GRPCDetector (internal/detection/grpc_detector.go) depends on
// protoc-generated stubs (orbo/api/proto/detection/v1) that were never
// committed to the tree — like goa's gen/ packages, they cannot be produced
// without invoking protoc here. Rather than drop google.golang.org/grpc and
// google.golang.org/protobuf entirely, this adapter calls the same unary
// RPC shape through ClientConn.Invoke with structpb.Struct as the wire
// message: a real, pre-generated protobuf type, so the wire format is
// genuine protobuf without any hand-authored generated code. See
// DESIGN.md.
const detectMethod = "/flowguard.detector.v1.Detector/Detect"

// GRPCDetector adapts a gRPC inference peer to Port. Connection setup
// (insecure transport credentials, keepalive parameters, dial timeout) is
// grounded on the teacher's GRPCDetector.connect.
type GRPCDetector struct {
	endpoint string
	conn     *grpc.ClientConn

	mu         sync.Mutex
	healthy    bool
	lastHealth time.Time
}

// NewGRPCDetector dials endpoint and returns a ready adapter.
func NewGRPCDetector(endpoint string) (*GRPCDetector, error) {
	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kacp := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}

	conn, err := grpc.DialContext(dialCtx, endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("detector: dial %s: %w", endpoint, err)
	}

	return &GRPCDetector{endpoint: endpoint, conn: conn}, nil
}

// Close releases the underlying connection.
func (d *GRPCDetector) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// IsHealthy reports the connection's readiness, cached for 30s to match
// the HTTP adapter's cadence and the teacher's health-check discipline.
func (d *GRPCDetector) IsHealthy(ctx context.Context) bool {
	d.mu.Lock()
	if time.Since(d.lastHealth) < 30*time.Second && d.healthy {
		d.mu.Unlock()
		return true
	}
	d.mu.Unlock()

	state := d.conn.GetState()
	ok := state.String() == "READY" || state.String() == "IDLE"

	d.mu.Lock()
	d.healthy = ok
	if ok {
		d.lastHealth = time.Now()
	}
	d.mu.Unlock()
	return ok
}

// DetectAndTrack sends frame as a base64 field inside a structpb.Struct
// request and parses the structured response the same way, propagating
// track_id end to end.
func (d *GRPCDetector) DetectAndTrack(ctx context.Context, frame []byte) ([]Detection, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"frame_b64": base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return nil, fmt.Errorf("detector: build grpc request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := d.conn.Invoke(ctx, detectMethod, req, resp); err != nil {
		return nil, fmt.Errorf("detector: grpc invoke: %w", err)
	}

	rows, ok := resp.Fields["detections"]
	if !ok {
		return nil, nil
	}

	var out []Detection
	for _, v := range rows.GetListValue().GetValues() {
		fields := v.GetStructValue().GetFields()
		trackVal, hasTrack := fields["track_id"]
		if !hasTrack {
			continue // spec §4.3: detections without track_id are discarded
		}
		trackID := int(trackVal.GetNumberValue())

		bboxVals := fields["bbox"].GetListValue().GetValues()
		var bbox BBox
		for i := 0; i < 4 && i < len(bboxVals); i++ {
			bbox[i] = bboxVals[i].GetNumberValue()
		}

		out = append(out, Detection{
			ClassID:    int(fields["class_id"].GetNumberValue()),
			Confidence: fields["confidence"].GetNumberValue(),
			BBox:       bbox,
			TrackID:    &trackID,
		})
	}
	return out, nil
}

package rampdrive

import "context"

// Link is the outbound half of the wireless transport. The transport owns the
// connection lifecycle; it reports it to the engine through LinkUp/LinkDown
// and hands inbound lines to Deliver.
type Link interface {
	// Send writes one chunk. Chunks are at most MaxPayload bytes.
	Send(ctx context.Context, chunk []byte) error
	// MaxPayload is the largest payload negotiated for the connection.
	MaxPayload() int
}

// sendResponse writes a response over the link, split into payload-sized
// chunks. A non-positive MaxPayload sends the response whole.
func sendResponse(ctx context.Context, link Link, resp string) error {
	payload := []byte(resp)
	size := link.MaxPayload()
	if size <= 0 {
		size = len(payload)
	}
	for len(payload) > 0 {
		n := size
		if n > len(payload) {
			n = len(payload)
		}
		if err := link.Send(ctx, payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

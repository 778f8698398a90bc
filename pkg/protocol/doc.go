// ABOUTME: XclockDAC control protocol package
// ABOUTME: Defines protocol messages and the WebSocket client
// Package protocol implements the JSON control protocol spoken by
// xclockdacd on the /xclockdac websocket endpoint.
//
// Requests carry an ID that the reply echoes. State changes are also
// broadcast as clock/state messages without an ID.
//
// Example:
//
//	c := protocol.NewClient(protocol.Config{ServerAddr: "raspberrypi.local:8928"})
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Close()
//	state, err := c.Set(ctx, 48000)
package protocol

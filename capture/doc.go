// Package capture records the Homie traffic a client sends and receives.
//
// A Recorder receives one Record per MQTT publish.  Wrap a client to feed
// one:
//
//	rec, _ := capture.NewFileRecorder("session.hcap")
//	defer rec.Close()
//	client := capture.Wrap(mqttClient, capture.NewMultiRecorder(
//	    rec,
//	    capture.NewSlogRecorder(slog.Default()),
//	))
//
// Capture files are a stream of CBOR encoded records.  A Reader walks them,
// optionally filtered, and Replay feeds them back into a message handler
// such as a controller.
package capture

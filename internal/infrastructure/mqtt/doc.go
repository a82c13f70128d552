// Package mqtt provides MQTT client connectivity for StageLink Core.
//
// The broker is the external control bus: the mixer bridge publishes
// parameter state and health on retained topics, and remote controllers
// issue commands through the broker without touching the OSC transport.
//
//	Controllers ↔ MQTT Broker ↔ StageLink Core ↔ OSC Console
//
// The client handles auto-reconnect with subscription replay, QoS 0-2
// publishing, wildcard subscriptions, and a Last Will on the system
// status topic so a crashed core is distinguishable from a stopped one.
//
// # Security Considerations
//
//   - Production deployments need cfg.Broker.TLS=true; anonymous access
//     is for local development only
//   - Payloads are plain JSON, protected only by TLS transport
//
// # Performance Characteristics
//
//   - Publish latency to a local broker is well under the OSC request
//     timeout, so bridging adds no perceptible delay to fader moves
//   - Reconnect backs off between the configured initial and max delays
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Watch every parameter the bridge publishes
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("state: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Issue a read command to the mixer bridge
//	topic := mqtt.Topics{}.BridgeCommand("mixer")
//	client.Publish(topic, []byte(`{"action":"get","address":"/ch/01/mix/fader"}`), 1, false)
package mqtt

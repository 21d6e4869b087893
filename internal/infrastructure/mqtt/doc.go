// Package mqtt provides MQTT client connectivity for MirAIe Core.
//
// The same Client is used for two brokers:
//   - the local broker Home Assistant listens on (discovery, state, commands)
//   - the MirAIe cloud broker devices report to (see internal/miraieac)
//
// This package manages:
//   - Connection with auto-reconnect and subscription restoration
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will, birth and graceful offline messages
//   - Rotating credentials through Options.Credentials
//
// # Topic Layout
//
//	homeassistant/<component>/<node_id>/<object_id>/config   retained discovery
//	miraie/<entity_id>/state                                  retained JSON state
//	miraie/<entity_id>/availability                           online / offline
//	miraie/<entity_id>/<command>/set                          commands from HA
//	miraie/bridge/status                                      process availability (LWT)
//
// # Usage
//
//	topics := mqtt.TopicsFromConfig(cfg.HomeAssistant)
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishRetained(topics.State("climate.living_room"), payload)
//
// # Security Considerations
//
//   - Use TLS for any broker that is not on the loopback interface
//   - MirAIe access tokens are only passed through the credentials provider
//     and are never logged
package mqtt

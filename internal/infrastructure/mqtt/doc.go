// Package mqtt provides the MQTT client used by the access daemon.
//
// The daemon uses the Gray Logic broker for four things:
//
//   - device command request/reply when hardware.transport is "mqtt"
//     (graylogic/hw/cmd/{device} and graylogic/hw/reply/{device})
//   - raw pulses from remote Wiegand readers (graylogic/access/pulses/{reader})
//   - decoded credentials (graylogic/access/credential/{reader})
//   - daemon health and online status
//
// The client reconnects with exponential backoff and restores its
// subscriptions. A Last Will marks the daemon offline if it dies.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AccessPulses("door-front"), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt

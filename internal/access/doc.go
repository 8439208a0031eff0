// Package access turns decoded reader credentials into published access
// events.
//
// The Dispatcher is the sink behind every Wiegand reader and every virtual
// RFID reader fed by an external MQTT server. For each credential it:
//
//  1. converts cards to their integer number with the Wiegand codec
//  2. publishes a JSON event on graylogic/access/credential/{reader}
//  3. writes an access_events point to InfluxDB
//  4. broadcasts the event to WebSocket clients on the "access" channel
//  5. records a "credential" audit entry
//
// Authorization is out of scope: consumers of the credential topic decide
// whether a door opens.
package access

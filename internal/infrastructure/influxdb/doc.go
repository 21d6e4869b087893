// Package influxdb records entity state history in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Every state write of
// a climate or switch entity can be mirrored here, giving a long-term record
// of temperatures, modes and availability that Home Assistant's recorder
// does not keep.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteEntityState(influxdb.EntityState{EntityID: "climate.bedroom", State: "cool"}, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; errors are delivered
// through SetOnError.
package influxdb

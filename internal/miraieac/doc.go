// Package miraieac is a client for Panasonic MirAIe air conditioners.
//
// A Hub logs in to the MirAIe cloud, discovers the devices of the account's
// home over the REST API and keeps their Status current from the cloud MQTT
// broker. Commands are published to the device's control topic; the device
// confirms them by publishing a new status.
//
// Authentication uses the account's email address or mobile number. The
// cloud issues a bearer token that also serves as the broker password; the
// hub logs in again shortly before it expires.
//
// Usage:
//
//	hub := miraieac.NewHub(miraieac.ConfigFrom(cfg.MirAIe), miraieac.WithLogger(log))
//	if err := hub.Init(ctx, "user@example.com", "secret"); err != nil {
//	    return err
//	}
//	defer hub.Close()
//
//	for _, d := range hub.Devices() {
//	    d.RegisterCallback(func() { fmt.Println(d.Status().PowerMode) })
//	}
package miraieac

// Package handler implements the request handlers of the gateway and the
// routing table that selects one by the second hint segment (the area).
//
// Routes:
//
//	get  /ping
//	get  /kkm/list
//	get  /kkm/status/<serial>
//	post /kkm/<op>/<serial>                 (X-Idempotency-Key required)
//	get  /config
//	get  /config/devices
//	post /config/devices/<serial>           (upsert)
//	post /config/devices/<serial>/remove
//	get  /static/<path>
//	get  /metrics
//	get  /                                  (redirect to the static index)
package handler

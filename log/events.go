package log

// Inner log events.
const (
	EventComponentStarted  = "component_started"
	EventComponentShutdown = "component_shutdown"
	EventMSShutdown        = "ms_shutdown"
	EventPanic             = "panic"
	EventNetworkAssociated = "network_associated"
	EventTransportConnect  = "transport_connected"
	EventTelemetrySent     = "telemetry_sent"
	EventTelemetryAcked    = "telemetry_confirmed"
	EventMethodInvoked     = "method_invoked"
	EventTwinUpdated       = "twin_updated"
	EventMessageReceived   = "message_received"
	EventGraphWrapped      = "graph_wrapped"
	EventSensorInvalid     = "sensor_invalid"
	EventWSConnAdded       = "ws_conn_added"
	EventWSConnRemoved     = "ws_conn_removed"
)

package events

var (
	BrokerDisconnectedTopic = "BrokerDisconnectedEvent"
	BrokerReconnectedTopic  = "BrokerReconnectedEvent"
)

type BrokerDisconnected struct {
	Err error
}

type BrokerReconnected struct {
	URL string
}

package ports

// DeliveryChannel transmits serialized events to the ingestion endpoint.
// Neither method blocks the caller or panics; failures are handled inside.
type DeliveryChannel interface {
	// SendNormal issues an asynchronous send with a single retry.
	SendNormal(body []byte)
	// SendReliable issues a fire-and-forget send that outlives the page.
	SendReliable(body []byte)
}

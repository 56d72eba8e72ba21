package store

// Item is the unit persisted under a key. TTL is a Unix timestamp in seconds;
// zero means the item never expires.
type Item struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	TTL   int64  `json:"ttl,omitempty"`
}

// HasTTL reports whether the item carries an expiration.
func (i Item) HasTTL() bool {
	return i.TTL > 0
}

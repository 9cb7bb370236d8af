package infra_catalog_cache

import (
	"time"

	"github.com/go-redis/redis"
)

// Driver caches serialized catalog pages so repeated refills against the
// same filters do not hammer the external catalog. Best effort: a cache
// error is indistinguishable from a miss.
type Driver struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(client *redis.Client, key string, ttl time.Duration) *Driver {
	return &Driver{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (d *Driver) Get(key string) ([]byte, bool) {
	val, err := d.client.Get(d.getFullKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (d *Driver) Set(key string, value []byte) {
	_ = d.client.Set(d.getFullKey(key), value, d.ttl).Err()
}

func (d *Driver) getFullKey(key string) string {
	if d.key != "" {
		return d.key + ":" + key
	}
	return key
}

package mint

import (
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pixlmixr/minting-service/app"
)

// memoryDatabase keeps the mints collection in memory with the same unique
// artifact_id and payment_tx_id indexes the mongo ledger relies on.
type memoryDatabase struct {
	mu    sync.Mutex
	docs  map[string]bson.M
	locks map[string]string
	seq   int
}

var _ app.Database = &memoryDatabase{}

func newMemoryDatabase() *memoryDatabase {
	return &memoryDatabase{
		docs:  map[string]bson.M{},
		locks: map[string]string{},
	}
}

func (d *memoryDatabase) Connect() error      { return nil }
func (d *memoryDatabase) SetupLockers() error { return nil }
func (d *memoryDatabase) SetupIndexes() error { return nil }
func (d *memoryDatabase) Disconnect() error   { return nil }
func (d *memoryDatabase) Ping() error         { return nil }

func (d *memoryDatabase) InsertOne(collection string, data interface{}) error {
	return fmt.Errorf("insert not supported")
}

func (d *memoryDatabase) FindMany(collection string, filter interface{}, result interface{}) error {
	return fmt.Errorf("find many not supported")
}

func (d *memoryDatabase) UpdateOne(collection string, filter interface{}, update interface{}) error {
	return fmt.Errorf("update not supported")
}

func (d *memoryDatabase) FindOne(collection string, filter interface{}, result interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range d.docs {
		if matches(doc, filter.(bson.M)) {
			raw, err := bson.Marshal(doc)
			if err != nil {
				return err
			}
			return bson.Unmarshal(raw, result)
		}
	}
	return app.ErrNoDocuments
}

func matches(doc bson.M, filter bson.M) bool {
	for k, v := range filter {
		if doc[k] != v {
			return false
		}
	}
	return true
}

func (d *memoryDatabase) UpsertOne(collection string, filter interface{}, update interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	artifactId := filter.(bson.M)["artifact_id"].(string)
	changes := update.(bson.M)

	doc := bson.M{}
	existing, found := d.docs[artifactId]
	for k, v := range existing {
		doc[k] = v
	}
	doc["artifact_id"] = artifactId
	if set, ok := changes["$set"].(bson.M); ok {
		for k, v := range set {
			doc[k] = v
		}
	}
	if unset, ok := changes["$unset"].(bson.M); ok {
		for k := range unset {
			delete(doc, k)
		}
	}
	if onInsert, ok := changes["$setOnInsert"].(bson.M); ok && !found {
		for k, v := range onInsert {
			doc[k] = v
		}
	}

	if payment, ok := doc["payment_tx_id"].(string); ok {
		for id, other := range d.docs {
			if id != artifactId && other["payment_tx_id"] == payment {
				return app.ErrDuplicateKey
			}
		}
	}

	d.docs[artifactId] = doc
	return nil
}

func (d *memoryDatabase) XLock(resourceId string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, held := d.locks[resourceId]; held {
		return "", app.ErrResourceLocked
	}
	d.seq++
	lockId := fmt.Sprintf("lock-%d", d.seq)
	d.locks[resourceId] = lockId
	return lockId, nil
}

func (d *memoryDatabase) Unlock(lockId string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for resource, id := range d.locks {
		if id == lockId {
			delete(d.locks, resource)
			return nil
		}
	}
	return fmt.Errorf("lock %s not held", lockId)
}

func (d *memoryDatabase) row(artifactId string) bson.M {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docs[artifactId]
}

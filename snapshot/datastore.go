package snapshot

import (
	"context"
	"io"

	"cloud.google.com/go/datastore"
	"github.com/alexandre-normand/printqueue/queue"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// SlotValue is the entity held at one position of the queue. Its key name is the position
type SlotValue struct {
	UserID string `datastore:",noindex"`
}

// datastorer is implemented by any value that implements all of its methods. It is meant
// to allow easier testing decoupled from an actual datastore and the methods defined are
// implemented by the datastore.Client
type datastorer interface {
	io.Closer
	GetAll(c context.Context, query *datastore.Query, dest interface{}) (keys []*datastore.Key, err error)
	PutMulti(c context.Context, keys []*datastore.Key, src interface{}) (ret []*datastore.Key, err error)
	DeleteMulti(c context.Context, keys []*datastore.Key) (err error)
}

// Datastore holds a queue in google cloud datastore with one entity of the given kind per position
type Datastore struct {
	datastorer
	kind string
}

// NewDatastore returns a new Datastore for the entity kind. This function also requires a
// gcloudProjectID as well as options to provide gcloud client credentials
func NewDatastore(kind string, gcloudProjectID string, gcloudClientOpts ...option.ClientOption) (dsdb *Datastore, err error) {
	client, err := datastore.NewClient(context.Background(), gcloudProjectID, gcloudClientOpts...)
	if err != nil {
		return nil, err
	}

	return newWithDatastorer(kind, client)
}

func newWithDatastorer(kind string, ds datastorer) (dsdb *Datastore, err error) {
	dsdb = &Datastore{datastorer: ds, kind: kind}

	if err = dsdb.testDB(); err != nil {
		dsdb.Close()
		return nil, err
	}

	return dsdb, nil
}

// testDB makes a lightweight call to the datastore to validate connectivity and credentials
func (dsdb *Datastore) testDB() (err error) {
	_, err = dsdb.GetAll(context.Background(), datastore.NewQuery(dsdb.kind).KeysOnly().Limit(1), nil)
	return err
}

// Save writes the entries and deletes the positions past the end of the queue
func (dsdb *Datastore) Save(entries []queue.UserID) (err error) {
	ctx := context.Background()

	existing, err := dsdb.GetAll(ctx, datastore.NewQuery(dsdb.kind).KeysOnly(), nil)
	if err != nil {
		return errors.Wrapf(err, "failed to list [%s] entities", dsdb.kind)
	}

	current := make(map[string]bool)
	keys := make([]*datastore.Key, len(entries))
	values := make([]*SlotValue, len(entries))
	for i, u := range entries {
		keys[i] = datastore.NameKey(dsdb.kind, positionKey(i), nil)
		values[i] = &SlotValue{UserID: string(u)}
		current[keys[i].Name] = true
	}

	stale := make([]*datastore.Key, 0)
	for _, k := range existing {
		if !current[k.Name] {
			stale = append(stale, k)
		}
	}

	if len(keys) > 0 {
		if _, err = dsdb.PutMulti(ctx, keys, values); err != nil {
			return errors.Wrapf(err, "failed to put [%d] [%s] entities", len(keys), dsdb.kind)
		}
	}

	if len(stale) > 0 {
		if err = dsdb.DeleteMulti(ctx, stale); err != nil {
			return errors.Wrapf(err, "failed to delete [%d] stale [%s] entities", len(stale), dsdb.kind)
		}
	}

	return nil
}

// Load returns the entries ordered by position
func (dsdb *Datastore) Load() (entries []queue.UserID, err error) {
	var values []SlotValue

	keys, err := dsdb.GetAll(context.Background(), datastore.NewQuery(dsdb.kind), &values)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load [%s] entities", dsdb.kind)
	}

	s := make(slots)
	for i, k := range keys {
		if err = s.put(k.Name, queue.UserID(values[i].UserID)); err != nil {
			return nil, errors.Wrapf(err, "invalid datastore snapshot of kind [%s]", dsdb.kind)
		}
	}

	entries, err = s.ordered()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid datastore snapshot of kind [%s]", dsdb.kind)
	}

	return entries, nil
}

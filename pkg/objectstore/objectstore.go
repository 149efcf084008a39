// Package objectstore keeps the raw csv bytes of saved runs in a NATS
// JetStream object store bucket.
package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

const (
	DefaultBucket = "datalogs"
	SubjectSaved  = "run.saved"
)

var ErrNotFound = errors.New("object not found")

type (
	Option func(*Store)
	Store  struct {
		conn   *nats.Conn
		bucket string
		obs    jetstream.ObjectStore
		log    *log.Logger
	}
)

func WithBucket(bucket string) Option {
	return func(s *Store) {
		s.bucket = bucket
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

func New(conn *nats.Conn, opts ...Option) (*Store, error) {
	ret := &Store{
		conn:   conn,
		bucket: DefaultBucket,
		log:    log.Default().Named("objectstore"),
	}
	for _, o := range opts {
		o(ret)
	}
	if err := ret.init(); err != nil {
		return nil, err
	}
	ret.log.Debug("Initialized NATS object store", log.String("bucket", ret.bucket))
	return ret, nil
}

func (s *Store) init() error {
	var js jetstream.JetStream
	var err error
	if js, err = jetstream.New(s.conn); err != nil {
		return err
	}
	s.obs, err = js.CreateOrUpdateObjectStore(context.Background(),
		jetstream.ObjectStoreConfig{
			Bucket:      s.bucket,
			Description: "raw datalog exports of saved runs",
		})
	return err
}

// ObjectKey is the object name for the raw log of a run.
func ObjectKey(id uuid.UUID) string {
	return fmt.Sprintf("runs/%s.csv", id.String())
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	info, err := s.obs.PutBytes(ctx, key, data)
	if err != nil {
		return err
	}
	s.log.Debug("stored object",
		log.String("key", key),
		log.Uint("size", uint(info.Size)))
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.obs.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.obs.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return ErrNotFound
	}
	return err
}

// savedMsg is published on SubjectSaved once a run is persisted.
type savedMsg struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ObjectKey string `json:"objectKey"`
}

// NotifySaved announces a stored run to subscribers of SubjectSaved.
func (s *Store) NotifySaved(r *model.Run) error {
	data, err := json.Marshal(savedMsg{
		ID:        r.ID.String(),
		Name:      r.Name,
		ObjectKey: r.ObjectKey,
	})
	if err != nil {
		return err
	}
	return s.conn.Publish(SubjectSaved, data)
}

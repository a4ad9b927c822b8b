// Package archive persists a bookkeeping record for each completed
// acquisition run to an embedded bbolt database — grounded on the
// pack's jinr-greenlab-go-adc dependency on go.etcd.io/bbolt, put to
// use here as this project's local run history instead of a live
// timeseries store.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/liultimate/siglent-acq/pkg/waveform"
)

var runsBucket = []byte("runs")

// Store wraps a bbolt database file holding one JSON-encoded RunRecord
// per completed acquisition, keyed by its start time.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开归档数据库失败: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化归档桶失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Put stores a run record keyed by its StartedAt timestamp (nanosecond
// precision, so back-to-back runs never collide).
func (s *Store) Put(r waveform.RunRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("序列化运行记录失败: %w", err)
	}
	key := []byte(r.StartedAt.Format(time.RFC3339Nano))
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).Put(key, data)
	})
}

// Recent returns up to n most recently stored run records, newest
// first.
func (s *Store) Recent(n int) ([]waveform.RunRecord, error) {
	var out []waveform.RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var r waveform.RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("解析运行记录失败: %w", err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *Store) Close() error { return s.db.Close() }

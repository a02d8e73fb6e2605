package dao

import (
	"sync"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/index"
	"github.com/asdine/storm/v3/q"
	"github.com/medbot/pill-reminder/model"
	"github.com/medbot/pill-reminder/util"
	bolt "go.etcd.io/bbolt"
)

var (
	//ErrNotFound is returned when a requested record does not exist
	ErrNotFound = storm.ErrNotFound
	//ErrAlreadyExists is returned when an insert hits a unique constraint
	ErrAlreadyExists = storm.ErrAlreadyExists
)

type Db interface {
	Init(data interface{}) error
	One(fieldName string, value interface{}, to interface{}) error
	Update(data interface{}) error
	Save(data interface{}) error
	DeleteStruct(data interface{}) error
	Select(matchers ...q.Matcher) storm.Query
	Find(fieldName string, value interface{}, to interface{}, options ...func(q *index.Options)) error
	All(to interface{}, options ...func(*index.Options)) error
	Close() error
}

var (
	once     sync.Once
	instance Db
)

func GetClient(dbFilePath string) (Db, error) {
	var err error

	once.Do(func() {
		exists := util.FileExists(dbFilePath)
		instance, err = storm.Open(dbFilePath, storm.BoltOptions(0600, &bolt.Options{Timeout: 10 * time.Second, ReadOnly: false}))
		if err != nil {
			return
		}
		if !exists {
			//init db structs
			for _, data := range []interface{}{&model.Customer{}, &model.ReminderRecord{}, &model.InboundMessage{}} {
				err = instance.Init(data)
				if err != nil {
					return
				}
			}
		}
	})

	return instance, err
}

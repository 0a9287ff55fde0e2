package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	logging "omni-trending/internal/infra/log"

	"github.com/tidwall/buntdb"
	"go.uber.org/zap"
)

const (
	UsersFile  = "users.db"
	keyPrefix  = "user:"
	stateIndex = "state_index"
)

// Store persists UserState in buntdb. Each Fire runs in one write transaction.
type Store struct {
	db  *buntdb.DB
	now func() time.Time
}

// FromMemory opens a store that lives only as long as the process.
func FromMemory() (*Store, error) {
	return Open(":memory:")
}

// FromDataDir opens <dataDir>/users.db, creating the directory when needed.
func FromDataDir(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return Open(filepath.Join(dataDir, UsersFile))
}

func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	if err := db.CreateIndex(stateIndex, keyPrefix+"*", buntdb.IndexJSON("state")); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func userKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the user's state; unknown users are idle.
func (s *Store) Get(userID int64) (UserState, error) {
	var us UserState
	err := s.db.View(func(tx *buntdb.Tx) error {
		var err error
		us, err = getTx(tx, userID)
		return err
	})
	return us, err
}

func getTx(tx *buntdb.Tx, userID int64) (UserState, error) {
	raw, err := tx.Get(userKey(userID))
	if errors.Is(err, buntdb.ErrNotFound) {
		return UserState{UserID: userID, State: StateIdle}, nil
	}
	if err != nil {
		return UserState{}, fmt.Errorf("failed to read user %d: %w", userID, err)
	}

	var us UserState
	if err := json.Unmarshal([]byte(raw), &us); err != nil {
		return UserState{}, fmt.Errorf("failed to unmarshal user %d: %w", userID, err)
	}
	return us, nil
}

func setTx(tx *buntdb.Tx, us UserState) error {
	content, err := json.Marshal(us)
	if err != nil {
		return fmt.Errorf("failed to marshal user %d: %w", us.UserID, err)
	}
	if _, _, err := tx.Set(userKey(us.UserID), string(content), nil); err != nil {
		return fmt.Errorf("failed to store user %d: %w", us.UserID, err)
	}
	return nil
}

// Fire applies ev to the user's state, then lets mutate fill in the data the
// new state needs. Nothing is written when the move is illegal or incomplete.
func (s *Store) Fire(userID int64, ev Event, mutate func(*UserState)) (UserState, error) {
	var result UserState
	err := s.db.Update(func(tx *buntdb.Tx) error {
		us, err := getTx(tx, userID)
		if err != nil {
			return err
		}
		from := us.State

		if err := us.apply(ev); err != nil {
			return err
		}
		if mutate != nil {
			mutate(&us)
		}
		us.UserID = userID
		if err := us.validate(); err != nil {
			return err
		}
		us.UpdatedAt = s.now().UTC()

		if err := setTx(tx, us); err != nil {
			return err
		}

		logging.LogDebug("Conversation transition",
			zap.Int64("user_id", userID),
			zap.String("event", string(ev)),
			zap.String("from", string(from)),
			zap.String("to", string(us.State)))
		result = us
		return nil
	})
	if err != nil {
		return UserState{}, err
	}
	return result, nil
}

// ListByState returns users currently in state, oldest update first.
func (s *Store) ListByState(state State) ([]UserState, error) {
	users := make([]UserState, 0)
	pivot := fmt.Sprintf(`{"state":%q}`, string(state))

	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendEqual(stateIndex, pivot, func(key, value string) bool {
			var us UserState
			if err := json.Unmarshal([]byte(value), &us); err != nil {
				logging.LogWarn("Skipping unreadable user state", zap.String("key", key), zap.Error(err))
				return true
			}
			users = append(users, us)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over users: %w", err)
	}

	sortByUpdated(users)
	return users, nil
}

func sortByUpdated(users []UserState) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].UpdatedAt.Before(users[j].UpdatedAt)
	})
}

func (s *Store) Delete(userID int64) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(userKey(userID))
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
}

// Count returns how many users have stored state.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(keyPrefix+"*", func(_, _ string) bool {
			n++
			return true
		})
	})
	return n, err
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

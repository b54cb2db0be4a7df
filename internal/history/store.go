package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/recipe-importer/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketEntries = []byte("history")
	bucketRecipes = []byte("recipes")
)

var ErrNotFound = errors.New("not found")

// Store persists imported recipes and the ordered import history in BoltDB.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketEntries, bucketRecipes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// entryKey sorts entries by import time; the id suffix keeps keys unique.
func entryKey(e domain.HistoryEntry) []byte {
	key := make([]byte, 8, 8+len(e.ID))
	binary.BigEndian.PutUint64(key, uint64(e.ImportedAt.UnixNano()))
	return append(key, e.ID...)
}

// Add records an import and stores the recipe under its id.
func (s *Store) Add(ctx context.Context, entry domain.HistoryEntry, recipe *domain.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	var recipeData []byte
	if recipe != nil {
		if recipeData, err = json.Marshal(recipe); err != nil {
			return err
		}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketEntries).Put(entryKey(entry), entryData); err != nil {
			return err
		}
		if recipeData == nil {
			return nil
		}
		return tx.Bucket(bucketRecipes).Put([]byte(entry.RecipeID), recipeData)
	})
}

// List returns every history entry, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := []domain.HistoryEntry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var e domain.HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// Recipe loads a stored recipe by id.
func (s *Store) Recipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRecipes).Get([]byte(recipeID))
		if v == nil {
			return ErrNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return domain.DecodeRecipe(raw), nil
}

// Delete removes a history entry. The recipe goes too once no entry refers to it.
func (s *Store) Delete(ctx context.Context, entryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(bucketEntries)

		var target []byte
		var recipeID string
		refs := map[string]int{}
		err := entries.ForEach(func(k, v []byte) error {
			var e domain.HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			refs[e.RecipeID]++
			if e.ID == entryID {
				target = append([]byte(nil), k...)
				recipeID = e.RecipeID
			}
			return nil
		})
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}

		if err := entries.Delete(target); err != nil {
			return err
		}
		if refs[recipeID] > 1 {
			return nil
		}
		return tx.Bucket(bucketRecipes).Delete([]byte(recipeID))
	})
}

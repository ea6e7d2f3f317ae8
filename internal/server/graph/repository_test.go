package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryTests exercises the Tx contract against any backend.
func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)

	newNode := func(id, content string, tags ...string) *Node {
		if tags == nil {
			tags = []string{}
		}
		return &Node{ID: id, Content: content, Tags: tags, CreatedAt: now, LastAccessed: now}
	}

	t.Run("insert and get", func(t *testing.T) {
		repo := newRepo(t)
		n := newNode("n1", "hello world", "a", "b")
		n.Links = NewLinkSet("n2")
		n.Source = "test"

		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			return tx.Insert(ctx, n)
		}))

		var got *Node
		require.NoError(t, repo.View(ctx, func(tx Tx) (err error) {
			got, err = tx.Get(ctx, "n1")
			return err
		}))
		require.NotNil(t, got)
		assert.Equal(t, "hello world", got.Content)
		assert.Equal(t, []string{"a", "b"}, got.Tags)
		assert.Equal(t, []string{"n2"}, got.Links.IDs())
		assert.Equal(t, "test", got.Source)
		assert.True(t, now.Equal(got.CreatedAt))
		assert.True(t, now.Equal(got.LastAccessed))
		assert.Equal(t, int64(0), got.AccessCount)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			got, err := tx.Get(ctx, "missing")
			assert.Nil(t, got)
			return err
		}))
	})

	t.Run("failed update rolls back", func(t *testing.T) {
		repo := newRepo(t)
		boom := errors.New("boom")

		err := repo.Update(ctx, func(tx Tx) error {
			if err := tx.Insert(ctx, newNode("n1", "rolled back")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			got, err := tx.Get(ctx, "n1")
			assert.Nil(t, got)
			return err
		}))
	})

	t.Run("replace and reindex", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			return tx.Insert(ctx, newNode("n1", "alpha content", "x"))
		}))

		content := "bravo content"
		links := NewLinkSet("n9")
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			return tx.Replace(ctx, "n1", Patch{Content: &content, Links: &links})
		}))

		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			got, err := tx.Get(ctx, "n1")
			require.NoError(t, err)
			assert.Equal(t, "bravo content", got.Content)
			assert.Equal(t, []string{"x"}, got.Tags)
			assert.Equal(t, []string{"n9"}, got.Links.IDs())

			old, err := tx.Search(ctx, "alpha")
			require.NoError(t, err)
			assert.Empty(t, old)

			fresh, err := tx.Search(ctx, "bravo")
			require.NoError(t, err)
			require.Len(t, fresh, 1)
			assert.Equal(t, "n1", fresh[0].ID)
			return nil
		}))
	})

	t.Run("delete removes index entry", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			return tx.Insert(ctx, newNode("n1", "ephemeral"))
		}))
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			return tx.Delete(ctx, "n1")
		}))

		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			hits, err := tx.Search(ctx, "ephemeral")
			require.NoError(t, err)
			assert.Empty(t, hits)
			return nil
		}))
	})

	t.Run("search treats operators literally", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			if err := tx.Insert(ctx, newNode("n1", "notes about the flood-memory server")); err != nil {
				return err
			}
			return tx.Insert(ctx, newNode("n2", "unrelated text"))
		}))

		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			hits, err := tx.Search(ctx, "flood-memory")
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "n1", hits[0].ID)

			hits, err = tx.Search(ctx, "   ")
			require.NoError(t, err)
			assert.Empty(t, hits)
			return nil
		}))
	})

	t.Run("all in insertion order", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			for _, id := range []string{"c", "a", "b"} {
				if err := tx.Insert(ctx, newNode(id, "content "+id)); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			all, err := tx.All(ctx)
			require.NoError(t, err)
			var ids []string
			for _, n := range all {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, []string{"c", "a", "b"}, ids)
			return nil
		}))
	})

	t.Run("touch", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			if err := tx.Insert(ctx, newNode("n1", "one")); err != nil {
				return err
			}
			return tx.Insert(ctx, newNode("n2", "two"))
		}))

		later := now.Add(time.Hour)
		require.NoError(t, repo.Update(ctx, func(tx Tx) error {
			if err := tx.Touch(ctx, nil, later); err != nil {
				return err
			}
			return tx.Touch(ctx, []string{"n1"}, later)
		}))

		require.NoError(t, repo.View(ctx, func(tx Tx) error {
			n1, err := tx.Get(ctx, "n1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), n1.AccessCount)
			assert.True(t, later.Equal(n1.LastAccessed))

			n2, err := tx.Get(ctx, "n2")
			require.NoError(t, err)
			assert.Equal(t, int64(0), n2.AccessCount)
			assert.True(t, now.Equal(n2.LastAccessed))
			return nil
		}))
	})
}

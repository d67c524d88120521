package encoder

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/errors"
)

func TestRegistryDefault(t *testing.T) {
	r, err := NewRegistry(Options{})
	require.NoError(t, err)
	assert.Equal(t, Key{Language: "english", MaxTokenLength: 40}, r.DefaultKey())
	assert.Equal(t, "english", r.Default().Language())
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsBadDefault(t *testing.T) {
	_, err := NewRegistry(Options{Language: "klingon"})
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedLanguage))
}

func TestRegistryShareEngines(t *testing.T) {
	r, err := NewRegistry(Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	engines := make([]*Engine, 16)
	for i := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := r.Get(r.Resolve("French", 0, false))
			if err == nil {
				engines[i] = e
			}
		}()
	}
	wg.Wait()
	for _, e := range engines {
		require.NotNil(t, e)
		assert.Same(t, engines[0], e)
	}
	assert.Equal(t, 2, r.Len())
}

func TestRegistryUnsupportedNotCached(t *testing.T) {
	r, err := NewRegistry(Options{})
	require.NoError(t, err)
	_, err = r.Get(r.Resolve("klingon", 0, false))
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedLanguage))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryDisabledStemmingRejectsUnknownLanguages(t *testing.T) {
	r, err := NewRegistry(Options{DisableStemming: true})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, err := r.Get(r.Resolve(fmt.Sprintf("lang-%d", i), 0, false))
		assert.True(t, errors.Is(err, apperrors.ErrUnsupportedLanguage))
	}
	assert.Equal(t, 1, r.Len())

	e, err := r.Get(r.Resolve("German", 0, false))
	require.NoError(t, err)
	assert.Equal(t, "german", e.Language())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryResolveInheritsBase(t *testing.T) {
	r, err := NewRegistry(Options{Language: "spanish", MaxTokenLength: 20, DisableStemming: true})
	require.NoError(t, err)
	assert.Equal(t, Key{Language: "spanish", MaxTokenLength: 20, DisableStemming: true}, r.Resolve("", 0, false))
	assert.Equal(t, r.DefaultKey(), r.Resolve("", 0, false))
}

func TestRegistryStats(t *testing.T) {
	r, err := NewRegistry(Options{})
	require.NoError(t, err)
	_, err = r.Default().Encode("hello world")
	require.NoError(t, err)
	e, err := r.Get(r.Resolve("english", 10, true))
	require.NoError(t, err)
	_, err = e.Encode("hello")
	require.NoError(t, err)

	stats := r.Stats()
	require.Len(t, stats, 2)
	var docs int64
	for _, s := range stats {
		docs += s.Documents
	}
	assert.Equal(t, int64(2), docs)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPipelineType_IsValid(t *testing.T) {
	assert.True(t, PipelineGoogleDrive.IsValid())
	assert.True(t, PipelineLocalFiles.IsValid())
	assert.False(t, PipelineType("dropbox").IsValid())
	assert.False(t, PipelineType("").IsValid())
}

func TestKnownFilesSnapshot_Clone(t *testing.T) {
	now := time.Now()
	snap := KnownFilesSnapshot{
		"file-1": {ModifiedAt: now},
		"file-2": {ModifiedAt: now.Add(-time.Hour)},
	}

	clone := snap.Clone()

	assert.Equal(t, snap, clone)

	// Mutating the clone must not affect the original.
	clone["file-3"] = KnownFile{ModifiedAt: now}
	assert.Len(t, snap, 2)
	assert.Len(t, clone, 3)
}

func TestKnownFilesSnapshot_Clone_Nil(t *testing.T) {
	var snap KnownFilesSnapshot

	clone := snap.Clone()

	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestFileChanges_IsEmpty(t *testing.T) {
	assert.True(t, FileChanges{}.IsEmpty())

	assert.False(t, FileChanges{
		Added: []SourceFile{{FileID: "a"}},
	}.IsEmpty())

	assert.False(t, FileChanges{
		Deleted: []string{"gone"},
	}.IsEmpty())
}

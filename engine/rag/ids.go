package rag

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/segmentio/ksuid"
)

const maxDocumentIDLength = 255

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docrag/chunks"))

// newDocumentID derives a readable, time-ordered id from the file name.
func newDocumentID(fileName string) string {
	base := slug.Make(strings.TrimSuffix(fileName, extOf(fileName)))
	if base == "" {
		base = "document"
	}
	if len(base) > 64 {
		base = strings.Trim(base[:64], "-")
	}
	return base + "-" + ksuid.New().String()
}

func extOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return ""
	}
	return name[idx:]
}

// chunkID is a UUIDv5 of "<documentID>#<index>"; retrying a failed ingest with
// the same document id overwrites its orphaned vectors.
func chunkID(documentID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", documentID, index))).String()
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ObjectStore is the blob store behind voice and photo uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PublicURL(key string) string
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// Media kinds, also used as the filename prefix.
const (
	KindVoice = "voice"
	KindPhoto = "photo"
)

var audioExtensions = map[string]string{
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
	"audio/mp4":  "m4a",
	"audio/mpeg": "mp3",
	"audio/wav":  "wav",
}

// AudioExtension returns the file extension for an accepted audio content type.
func AudioExtension(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := audioExtensions[ct]
	return ext, ok
}

// ObjectKey namespaces an upload by group code: {group}/{kind}-{unixmillis}.{ext}
func ObjectKey(groupID, kind, ext string, at time.Time) string {
	return fmt.Sprintf("%s/%s-%d.%s", groupID, kind, at.UnixMilli(), ext)
}

// GroupPrefix is the key prefix owned by a group.
func GroupPrefix(groupID string) string {
	return groupID + "/"
}

// URLInGroup reports whether url points at an object under the group's prefix.
func URLInGroup(store ObjectStore, url, groupID string) bool {
	prefix := store.PublicURL(GroupPrefix(groupID))
	rest, ok := strings.CutPrefix(url, prefix)
	return ok && rest != "" && !strings.Contains(rest, "..") && !strings.Contains(rest, "/")
}

package drive

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"

	"github.com/drivekit/gdarch/internal/safety"
)

// walkFrame holds the not-yet-visited children of one folder. Frames
// live on an explicit stack so arbitrarily deep hierarchies cannot
// exhaust the goroutine stack.
type walkFrame struct {
	prefix  string
	pending []childFile
}

// Walk enumerates every downloadable file under folderID, depth-first
// in listing order, the way a recursive descent would visit them.
// Children without size metadata (Drive-native documents) are skipped
// and recorded in the returned stats.
func (c *Client) Walk(ctx context.Context, folderID string) ([]Entry, *WalkStats, error) {
	children, err := c.listChildren(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}

	stats := &WalkStats{}
	var entries []Entry
	stack := []*walkFrame{{pending: children}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		if len(frame.pending) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		child := frame.pending[0]
		frame.pending = frame.pending[1:]

		name, err := safety.CleanEntryName(child.Name)
		if err != nil {
			c.logger.Warn("skipping child with unusable name", "name", child.Name, "error", err)
			stats.Skipped = append(stats.Skipped, SkippedEntry{
				Path:   path.Join(frame.prefix, child.Name),
				Reason: err.Error(),
			})
			continue
		}
		rel := path.Join(frame.prefix, name)

		if child.MimeType == mimeFolder {
			stats.Folders++
			sub, err := c.listChildren(ctx, child.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("listing %s: %w", rel, err)
			}
			stack = append(stack, &walkFrame{prefix: rel, pending: sub})
			continue
		}

		if child.Size == "" {
			c.logger.Warn("skipping file without size metadata", "path", rel, "mime_type", child.MimeType)
			stats.Skipped = append(stats.Skipped, SkippedEntry{Path: rel, Reason: "no size metadata (" + child.MimeType + ")"})
			continue
		}
		size, err := strconv.ParseInt(child.Size, 10, 64)
		if err != nil || size < 0 {
			c.logger.Warn("skipping file with invalid size metadata", "path", rel, "size", child.Size)
			stats.Skipped = append(stats.Skipped, SkippedEntry{Path: rel, Reason: "invalid size " + strconv.Quote(child.Size)})
			continue
		}

		entries = append(entries, Entry{ID: child.ID, Size: size, RelativePath: rel})
		stats.Files++
		stats.TotalBytes += size
	}

	return entries, stats, nil
}

// listChildren fetches all children of a folder, following pagination
// until the continuation token runs out or the page ceiling trips.
func (c *Client) listChildren(ctx context.Context, folderID string) ([]childFile, error) {
	var all []childFile
	pageToken := ""

	for page := 0; ; page++ {
		if c.maxPages > 0 && page >= c.maxPages {
			return nil, fmt.Errorf("folder %s: pagination did not terminate after %d pages", folderID, c.maxPages)
		}

		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents", folderID))
		q.Set("fields", "nextPageToken, files(id, name, mimeType, size)")
		q.Set("pageSize", strconv.Itoa(c.pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var list fileList
		if err := c.getJSON(ctx, c.baseURL+"/files?"+q.Encode(), &list); err != nil {
			return nil, fmt.Errorf("listing children of %s: %w", folderID, err)
		}
		all = append(all, list.Files...)

		if list.NextPageToken == "" {
			return all, nil
		}
		pageToken = list.NextPageToken
	}
}

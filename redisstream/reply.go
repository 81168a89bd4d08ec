package redisstream

import (
	"fmt"

	"github.com/gomodule/redigo/redis"
)

type entry struct {
	id     string
	fields map[string]string
}

// parseEntries decodes an array of [id, [field, value, ...]] pairs. Entries whose
// field list is nil (deleted while pending) are returned with a nil map.
func parseEntries(reply any) ([]entry, error) {
	items, err := redis.Values(reply, nil)
	if err != nil {
		if err == redis.ErrNil {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: entries: %w", ErrUnexpectedReply, err)
	}

	entries := make([]entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		pair, err := redis.Values(item, nil)
		if err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: entry shape", ErrUnexpectedReply)
		}
		id, err := redis.String(pair[0], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: entry id: %w", ErrUnexpectedReply, err)
		}
		if pair[1] == nil {
			entries = append(entries, entry{id: id})

			continue
		}
		fields, err := redis.StringMap(pair[1], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s fields: %w", ErrUnexpectedReply, id, err)
		}
		entries = append(entries, entry{id: id, fields: fields})
	}

	return entries, nil
}

// parseReadReply decodes an XREAD/XREADGROUP reply for a single stream.
func parseReadReply(reply any) ([]entry, error) {
	if reply == nil {
		return nil, nil
	}
	streams, err := redis.Values(reply, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: streams: %w", ErrUnexpectedReply, err)
	}

	var entries []entry
	for _, s := range streams {
		pair, err := redis.Values(s, nil)
		if err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: stream shape", ErrUnexpectedReply)
		}
		parsed, err := parseEntries(pair[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}

	return entries, nil
}

// parseAutoClaimReply decodes an XAUTOCLAIM reply: [next-cursor, entries, deleted-ids?].
func parseAutoClaimReply(reply any) (string, []entry, error) {
	parts, err := redis.Values(reply, nil)
	if err != nil || len(parts) < 2 {
		return "", nil, fmt.Errorf("%w: autoclaim shape", ErrUnexpectedReply)
	}
	cursor, err := redis.String(parts[0], nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: autoclaim cursor: %w", ErrUnexpectedReply, err)
	}
	entries, err := parseEntries(parts[1])
	if err != nil {
		return "", nil, err
	}

	return cursor, entries, nil
}

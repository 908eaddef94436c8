package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/client/scanner"
)

// inputItem is one observed channel as read from stdin or a file.
type inputItem struct {
	Ref         string `json:"ref,omitempty"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

func (in inputItem) item() scanner.Item {
	return scanner.Item{Ref: in.Ref, Key: models.NewIdentityKey(in.ChannelID, in.ChannelName)}
}

// readItems accepts either a JSON array of items or one JSON object per line.
// Items without a ref are numbered by position when numberRefs is set.
func readItems(r io.Reader, numberRefs bool) ([]scanner.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raw []inputItem
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode input array: %w", err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(trimmed))
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		line := 0
		for sc.Scan() {
			line++
			text := bytes.TrimSpace(sc.Bytes())
			if len(text) == 0 {
				continue
			}
			var in inputItem
			if err := json.Unmarshal(text, &in); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			raw = append(raw, in)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
	}

	items := make([]scanner.Item, len(raw))
	for i, in := range raw {
		if numberRefs && in.Ref == "" {
			in.Ref = strconv.Itoa(i + 1)
		}
		items[i] = in.item()
	}
	return items, nil
}

// parseLine decodes a single NDJSON item.
func parseLine(line []byte) (scanner.Item, error) {
	var in inputItem
	if err := json.Unmarshal(line, &in); err != nil {
		return scanner.Item{}, err
	}
	return in.item(), nil
}

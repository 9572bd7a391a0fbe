// Package session implements the line-oriented client protocol (§6,
// §4.9): REGISTER, REQUEST-DATA, and the resulting streaming of Avro or
// JSON row records back to the client.
package session

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ghc888/MaxScale/internal/gtid"
	uuid "github.com/satori/go.uuid"
)

// Format is the wire representation a client asked to receive.
type Format int

const (
	FormatAvro Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "JSON"
	}
	return "AVRO"
}

var reRegister = regexp.MustCompile(`(?i)^REGISTER\s+UUID=([0-9a-zA-Z-]+)\s*(?:,\s*TYPE=(AVRO|JSON))?\s*$`)

// parseRegister parses "REGISTER UUID=<uuid>[, TYPE={AVRO|JSON}]",
// validating the UUID itself with satori/go.uuid rather than a fixed
// 36-character pattern.
func parseRegister(line string) (id string, format Format, err error) {
	m := reRegister.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", 0, fmt.Errorf("session: malformed REGISTER command")
	}
	parsed, err := uuid.FromString(m[1])
	if err != nil {
		return "", 0, fmt.Errorf("session: invalid REGISTER uuid %q: %w", m[1], err)
	}
	format = FormatAvro
	if strings.EqualFold(m[2], "JSON") {
		format = FormatJSON
	}
	return parsed.String(), format, nil
}

// requestData is a parsed REQUEST-DATA command.
type requestData struct {
	Filestem string
	Seek     *gtid.GTID
}

// parseRequestData parses "REQUEST-DATA <filestem>[ <domain>-<server_id>-<sequence>]".
func parseRequestData(line string) (requestData, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return requestData{}, fmt.Errorf("session: REQUEST-DATA with no data")
	}
	if !strings.EqualFold(fields[0], "REQUEST-DATA") {
		return requestData{}, fmt.Errorf("session: not a REQUEST-DATA command")
	}
	rd := requestData{Filestem: fields[1]}
	if rd.Filestem == "" {
		return requestData{}, fmt.Errorf("session: avro file not specified")
	}
	if len(fields) >= 3 {
		g, err := gtid.Parse(fields[2])
		if err != nil {
			return requestData{}, fmt.Errorf("session: invalid seek gtid: %w", err)
		}
		rd.Seek = &g
	}
	return rd, nil
}

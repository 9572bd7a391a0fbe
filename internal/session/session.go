package session

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ghc888/MaxScale/internal/avrocontainer"
	"github.com/ghc888/MaxScale/internal/gtid"
	log "github.com/sirupsen/logrus"
)

// State is a ClientSession's position in the protocol state machine
// (§4.9):
//
//	Unregistered --REGISTER--> Registered --REQUEST-DATA--> RequestData
//	any          --protocol/IO error-----> Errored
type State int

const (
	Unregistered State = iota
	Registered
	RequestData
	Errored
)

func (s State) String() string {
	switch s {
	case Registered:
		return "Registered"
	case RequestData:
		return "RequestData"
	case Errored:
		return "Errored"
	default:
		return "Unregistered"
	}
}

// pollInterval is how long the streaming loop sleeps after hitting
// end-of-file on an Avro container that may still grow (the converter
// keeps appending to it). There is no per-session busy flag or drain
// callback here: each session runs its own goroutine with a blocking
// conn, so the read-burst/release-busy-flag dance of an event-driven
// reactor collapses into an ordinary sequential loop.
const pollInterval = 200 * time.Millisecond

// ClientSession is one client's connection: its protocol state, the
// format it asked for, and (once streaming) the currently open Avro
// container.
type ClientSession struct {
	conn    net.Conn
	baseDir string

	state    State
	uuid     string
	format   Format
	filestem string
	version  int
	reader   *avrocontainer.Reader
	lastGTID gtid.GTID
}

// NewClientSession wraps conn, serving files rooted at baseDir (the
// directory the conversion driver writes {database}.{table}.{version}.avro
// and .avsc sidecars into).
func NewClientSession(conn net.Conn, baseDir string) *ClientSession {
	return &ClientSession{conn: conn, baseDir: baseDir, state: Unregistered}
}

// Serve runs the session to completion: reads commands until REQUEST-DATA
// moves it into the streaming state, then streams until the client
// disconnects or a protocol/IO error occurs. It always closes conn.
func (s *ClientSession) Serve() {
	defer s.conn.Close()
	defer func() {
		if s.reader != nil {
			s.reader.Close()
		}
	}()

	r := bufio.NewReader(s.conn)
	for s.state != RequestData && s.state != Errored {
		line, err := r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Debug("session: read error before registration")
			}
			return
		}
		if err := s.dispatch(line); err != nil {
			s.fail(err)
			return
		}
	}
	if s.state == Errored {
		return
	}
	s.stream()
}

func (s *ClientSession) dispatch(line string) error {
	switch {
	case matchesCommand(line, "REGISTER"):
		uuid, format, err := parseRegister(line)
		if err != nil {
			s.writeLine("ERR, code 12, msg: Registration failed")
			return err
		}
		s.uuid, s.format, s.state = uuid, format, Registered
		s.writeLine("OK")
		return nil
	case matchesCommand(line, "REQUEST-DATA"):
		if s.state != Registered {
			s.writeLine("ERR REQUEST-DATA with no data")
			return fmt.Errorf("session: REQUEST-DATA before REGISTER")
		}
		rd, err := parseRequestData(line)
		if err != nil {
			s.writeLine("ERR " + err.Error())
			return err
		}
		return s.enterRequestData(rd)
	default:
		s.writeLine("ECHO:" + line)
		return nil
	}
}

func matchesCommand(line, verb string) bool {
	n := len(verb)
	return len(line) >= n && (line[:n] == verb)
}

// enterRequestData resolves {filestem}.{version:06d}.avro (defaulting
// to version 000001 when filestem carries none), opens it, writes the
// schema preamble, and moves the session into RequestData.
func (s *ClientSession) enterRequestData(rd requestData) error {
	stem, version := splitVersion(rd.Filestem)
	path := avroPath(s.baseDir, stem, version)
	if _, err := os.Stat(path); err != nil {
		s.writeLine(fmt.Sprintf("ERR NO-FILE File '%s' not found.", rd.Filestem))
		return fmt.Errorf("session: %w", err)
	}
	reader, err := avrocontainer.OpenReader(path)
	if err != nil {
		s.writeLine(fmt.Sprintf("ERR NO-FILE File '%s' not found.", rd.Filestem))
		return err
	}
	s.filestem, s.version, s.reader = stem, version, reader
	s.state = RequestData

	if err := s.writePreamble(); err != nil {
		return err
	}
	if rd.Seek != nil {
		return s.seekTo(*rd.Seek)
	}
	return nil
}

func (s *ClientSession) writePreamble() error {
	switch s.format {
	case FormatJSON:
		schemaPath := avscPath(s.baseDir, s.filestem, s.version)
		text, err := os.ReadFile(schemaPath)
		if err != nil {
			return err
		}
		_, err = s.conn.Write(append(text, '\n'))
		return err
	default:
		hdr, err := s.reader.Header()
		if err != nil {
			return err
		}
		_, err = s.conn.Write(hdr)
		return err
	}
}

// seekTo discards JSON records until one satisfies
// sequence >= req.Sequence && server_id == req.ServerID && domain == req.Domain,
// then emits that record and the rest of its block and returns; Avro
// sessions ignore seeking since
// the wire format forwards whole blocks, not individual records.
func (s *ClientSession) seekTo(want gtid.GTID) error {
	if s.format != FormatJSON {
		return nil
	}
	for {
		records, err := s.reader.NextBlock()
		if err == io.EOF {
			return nil // nothing (yet) satisfies the seek; normal streaming will keep polling
		}
		if err != nil {
			return err
		}
		for i, rec := range records {
			g, err := recordGTID(rec)
			if err != nil {
				return err
			}
			if g.Sequence >= want.Sequence && g.ServerID == want.ServerID && g.Domain == want.Domain {
				if err := s.emitJSON(records[i:]); err != nil {
					return err
				}
				return nil
			}
		}
	}
}

// stream is the RequestData-state loop: read blocks, emit them in the
// requested format, rotate to the next version on end-of-file if it
// already exists, and otherwise poll (the file may still be growing).
func (s *ClientSession) stream() {
	for {
		err := s.readAndEmitBlock()
		switch {
		case err == nil:
			// fall through to the loop again; more blocks may follow
		case err == io.EOF:
			if rotated, rotErr := s.tryRotate(); rotErr != nil {
				s.fail(rotErr)
				return
			} else if rotated {
				continue
			}
			time.Sleep(pollInterval)
		default:
			s.fail(err)
			return
		}
	}
}

func (s *ClientSession) readAndEmitBlock() error {
	if s.format == FormatAvro {
		_, err := s.reader.NextRawBlock(s.conn)
		return err
	}
	records, err := s.reader.NextBlock()
	if err != nil {
		return err
	}
	return s.emitJSON(records)
}

func (s *ClientSession) tryRotate() (bool, error) {
	next := s.version + 1
	path := avroPath(s.baseDir, s.filestem, next)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	reader, err := avrocontainer.OpenReader(path)
	if err != nil {
		return false, err
	}
	s.reader.Close()
	s.reader, s.version = reader, next
	return true, s.writePreamble()
}

func (s *ClientSession) emitJSON(records []map[string]interface{}) error {
	for _, rec := range records {
		g, err := recordGTID(rec)
		if err == nil {
			s.lastGTID = g
		}
		line, err := jsonLine(rec)
		if err != nil {
			return err
		}
		if _, err := s.conn.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClientSession) writeLine(line string) {
	s.conn.Write([]byte(line + "\n"))
}

func (s *ClientSession) fail(err error) {
	log.WithError(err).WithField("uuid", s.uuid).Debug("session: transitioning to Errored")
	s.state = Errored
}

func splitVersion(filestem string) (stem string, version int) {
	ext := filepath.Ext(filestem)
	if len(ext) == 7 { // ".000001"
		if v, err := strconv.Atoi(ext[1:]); err == nil {
			return filestem[:len(filestem)-len(ext)], v
		}
	}
	return filestem, 1
}

func avroPath(baseDir, stem string, version int) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s.%06d.avro", stem, version))
}

func avscPath(baseDir, stem string, version int) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s.%06d.avsc", stem, version))
}

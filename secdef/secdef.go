// Copyright (c) 2024 Neomantra Corp

// Package secdef loads a gzip-compressed, SOH-delimited FIX-style
// security-definition file into a security_id -> (symbol, depth) index.
package secdef

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cmemdp/sbemdp-go"
	"github.com/klauspost/compress/gzip"
)

// Layout distinguishes the two FIX record shapes CME has shipped for
// secdef.dat: the legacy layout, where MarketDepth (264) only appears on
// rows also carrying "1022=GBX", and the newer layout, where 264 is
// always inline alongside 48/55. Load auto-detects the layout per line,
// so a single file can mix either.
type Layout int

const (
	LayoutLegacy Layout = iota
	LayoutInline
)

const soh = '\x01'

type record struct {
	symbol string
	depth  int
	layout Layout
}

// Index is the loaded security_id -> (symbol, depth) mapping.
type Index struct {
	info map[int64]record
}

// Load reads and decompresses a secdef file, auto-detecting per line
// whether it is the legacy "1022=GBX" layout or the newer inline-264
// layout.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sbe.NewIOError(path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, sbe.NewIOError(path, err)
	}
	defer gz.Close()

	return load(gz, path)
}

func load(r io.Reader, path string) (*Index, error) {
	idx := &Index{info: make(map[int64]record)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		securityID, rec, present, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		idx.info[securityID] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, sbe.NewIOError(path, err)
	}
	return idx, nil
}

// parseLine extracts tags 48 (SecurityID), 55 (Symbol) and 264
// (MarketDepth) from a single SOH-delimited FIX record.
//
// A line carrying none of 48/55/264/1022 is not a security-definition
// record at all (a FIX header or trailer line) and is silently skipped,
// present == false. A line that carries some of those tags but not a
// complete, well-formed set is a malformed record and reports
// SecDefParseError, mirroring the source loaders it is grounded on,
// which raise on exactly that shape. A line whose 1022 tag is present but
// not "GBX" is skipped (present == false) without checking the other tags.
func parseLine(line string) (securityID int64, rec record, present bool, err error) {
	tags := make(map[string]string, 8)
	for _, field := range strings.Split(line, string(soh)) {
		tag, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		tags[tag] = value
	}

	_, has48 := tags["48"]
	_, has55 := tags["55"]
	_, has264 := tags["264"]
	_, has1022 := tags["1022"]
	if !has48 && !has55 && !has264 && !has1022 {
		return 0, record{}, false, nil
	}

	layout := LayoutInline
	if has1022 {
		if tags["1022"] != "GBX" {
			return 0, record{}, false, nil
		}
		layout = LayoutLegacy
	}

	securityIDText, symbol, depthText := tags["48"], tags["55"], tags["264"]
	if securityIDText == "" || symbol == "" || depthText == "" {
		return 0, record{}, false, sbe.NewSecDefParseError(line, "missing required tag (48, 55 or 264)")
	}
	parsedID, convErr := strconv.ParseInt(securityIDText, 10, 64)
	if convErr != nil {
		return 0, record{}, false, sbe.NewSecDefParseError(line, "tag 48 is not an integer: %v", convErr)
	}
	depth, convErr := strconv.Atoi(depthText)
	if convErr != nil {
		return 0, record{}, false, sbe.NewSecDefParseError(line, "tag 264 is not an integer: %v", convErr)
	}
	return parsedID, record{symbol: symbol, depth: depth, layout: layout}, true, nil
}

// Lookup returns the symbol and display depth for securityID, or
// ok == false if it was never loaded.
func (idx *Index) Lookup(securityID int64) (symbol string, depth int, ok bool) {
	rec, ok := idx.info[securityID]
	if !ok {
		return "", 0, false
	}
	return rec.symbol, rec.depth, true
}

// Len reports how many security ids are loaded.
func (idx *Index) Len() int {
	return len(idx.info)
}

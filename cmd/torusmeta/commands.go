// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/torus-network/torus-client-go/lib/call"
	"github.com/torus-network/torus-client-go/lib/client"
	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/compat"
	"github.com/torus-network/torus-client-go/lib/constant"
	"github.com/torus-network/torus-client-go/lib/event"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/storage"
	"github.com/torus-network/torus-client-go/lib/torus"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/urfave/cli"
)

var (
	errMissingArguments = errors.New("missing arguments")
	errLimitReached     = errors.New("limit reached")
	errDivergedCalls    = errors.New("pinned calls diverged")
)

func (e *env) commands() []cli.Command {
	return []cli.Command{
		{
			Name:   "inspect",
			Usage:  "Print the pallets, storage items, calls, events, constants and runtime APIs",
			Action: e.inspect,
		},
		{
			Name:        "storage-key",
			Usage:       "Print the storage key of a pallet item",
			ArgsUsage:   "<pallet> <item> [key parts...]",
			Description: valuesUsage,
			Action:      e.storageKey,
		},
		{
			Name:        "encode-call",
			Usage:       "Print the SCALE encoding of a call",
			ArgsUsage:   "<pallet> <call> [arguments...]",
			Description: valuesUsage,
			Action:      e.encodeCall,
		},
		{
			Name:      "decode-call",
			Usage:     "Decode a SCALE encoded call",
			ArgsUsage: "<hex>",
			Action:    e.decodeCall,
		},
		{
			Name:      "decode-event",
			Usage:     "Decode an event, or event records with --records",
			ArgsUsage: "[<pallet index> <event index>] <hex>",
			Flags:     []cli.Flag{RecordsFlag},
			Action:    e.decodeEvent,
		},
		{
			Name:      "constant",
			Usage:     "Print the value of a pallet constant",
			ArgsUsage: "<pallet> <name>",
			Action:    e.constant,
		},
		{
			Name:   "pin",
			Usage:  "Write the expectations of the configured pallets and runtime APIs",
			Flags:  []cli.Flag{OutputFlag},
			Action: e.pin,
		},
		{
			Name:   "check",
			Usage:  "Check the metadata against the pinned expectations",
			Action: e.check,
		},
		{
			Name:   "fetch",
			Usage:  "Fetch the node metadata, store it in the cache and print or write it",
			Flags:  []cli.Flag{OutputFlag, CompressFlag},
			Action: e.fetch,
		},
		{
			Name:        "get",
			Usage:       "Read a storage item of the node, iterating when key parts are missing",
			ArgsUsage:   "<pallet> <item> [key parts...]",
			Description: valuesUsage,
			Flags:       []cli.Flag{PageSizeFlag, LimitFlag},
			Action:      e.get,
		},
		{
			Name:   "events",
			Usage:  "Print the events of a block",
			Flags:  []cli.Flag{AtFlag},
			Action: e.events,
		},
	}
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%w: usage: %s %s", errMissingArguments, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func (e *env) inspect(c *cli.Context) error {
	desc, err := e.descriptor()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, desc.Tree().String())
	return err
}

func (e *env) storageKey(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}
	args := c.Args()

	parts, err := parseValues(args[2:])
	if err != nil {
		return err
	}

	desc, err := e.descriptor()
	if err != nil {
		return err
	}

	key, err := storage.NewCodec(desc).Key(args[0], args[1], parts...)
	if err != nil {
		return err
	}
	if key.IterationOnly() {
		logger.Infof("%s.%s key is a prefix: %d of %d key parts given", key.Pallet, key.Item, key.Parts, key.Arity)
	}
	_, err = fmt.Fprintln(c.App.Writer, key.Hex())
	return err
}

func (e *env) encodeCall(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}
	args := c.Args()

	fields, err := parseValues(args[2:])
	if err != nil {
		return err
	}

	desc, err := e.descriptor()
	if err != nil {
		return err
	}

	encoded, err := call.NewEncoder(desc, e.exp).Encode(args[0], args[1], fields...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, common.BytesToHex(encoded))
	return err
}

func (e *env) decodeCall(c *cli.Context) error {
	err := requireArgs(c, 1)
	if err != nil {
		return err
	}

	b, err := common.HexToBytes(c.Args().First())
	if err != nil {
		return fmt.Errorf("parsing call: %w", err)
	}

	desc, err := e.descriptor()
	if err != nil {
		return err
	}

	decoded, err := call.NewEncoder(desc, nil).Decode(b)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, decoded)
	return err
}

func (e *env) decodeEvent(c *cli.Context) error {
	records := c.Bool(RecordsFlag.Name)
	if records {
		err := requireArgs(c, 1)
		if err != nil {
			return err
		}
	} else {
		err := requireArgs(c, 3)
		if err != nil {
			return err
		}
	}
	args := c.Args()

	b, err := common.HexToBytes(args[len(args)-1])
	if err != nil {
		return fmt.Errorf("parsing event: %w", err)
	}

	desc, err := e.descriptor()
	if err != nil {
		return err
	}
	decoder := event.NewDecoder(desc)

	if records {
		decoded, err := decoder.DecodeRecords(b)
		printErr := printRecords(c.App.Writer, decoded)
		if err != nil {
			return err
		}
		return printErr
	}

	palletIndex, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return fmt.Errorf("parsing pallet index: %w", err)
	}
	variantIndex, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return fmt.Errorf("parsing event index: %w", err)
	}

	ev, consumed, err := decoder.Decode(uint8(palletIndex), uint8(variantIndex), b)
	if err != nil {
		return err
	}
	if consumed < len(b) {
		logger.Warnf("%d bytes left after the event", len(b)-consumed)
	}
	_, err = fmt.Fprintln(c.App.Writer, ev)
	return err
}

func formatPhase(p event.Phase) string {
	if p.Name == "ApplyExtrinsic" {
		return fmt.Sprintf("%s(%d)", p.Name, p.Extrinsic)
	}
	return p.Name
}

func printRecords(w io.Writer, records []event.Record) error {
	for _, record := range records {
		line := formatPhase(record.Phase) + " " + record.Event.String()
		if len(record.Topics) > 0 {
			topics := make([]string, len(record.Topics))
			for i, topic := range record.Topics {
				topics[i] = topic.String()
			}
			line += " topics=[" + strings.Join(topics, ", ") + "]"
		}
		_, err := fmt.Fprintln(w, line)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *env) constant(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}
	args := c.Args()

	desc, err := e.descriptor()
	if err != nil {
		return err
	}

	v, err := constant.NewResolver(desc).Decode(args[0], args[1])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, v)
	return err
}

func (e *env) pin(c *cli.Context) error {
	desc, err := e.descriptor()
	if err != nil {
		return err
	}

	apis := e.cfg.Compatibility.RuntimeAPIs
	if len(apis) == 0 && desc.Version() >= metadata.V15 {
		apis = torus.DefaultRuntimeAPIs()
	}

	exp, err := metadata.Pin(desc, e.cfg.Compatibility.Pallets, apis)
	if err != nil {
		return err
	}

	output := c.String(OutputFlag.Name)
	if output == "" {
		return exp.Write(c.App.Writer)
	}

	file, err := os.Create(filepath.Clean(output))
	if err != nil {
		return fmt.Errorf("creating expectations file: %w", err)
	}
	err = exp.Write(file)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("writing expectations file: %w", err)
	}
	logger.Infof("pinned metadata hash %s to %s", exp.Metadata, output)
	return file.Close()
}

func (e *env) check(c *cli.Context) error {
	if e.exp == nil {
		return errNoExpectations
	}

	desc, err := e.descriptor()
	if err != nil {
		return err
	}

	validator, err := compat.NewValidator(e.exp)
	if err != nil {
		return err
	}

	diverged, err := validator.DivergedCalls(desc)
	if err != nil {
		return err
	}
	for _, name := range diverged {
		_, err = fmt.Fprintf(c.App.Writer, "diverged call %s\n", name)
		if err != nil {
			return err
		}
	}

	err = validator.Validate(desc)
	if err != nil {
		return err
	}
	if len(diverged) > 0 {
		return fmt.Errorf("%w: %d of them", errDivergedCalls, len(diverged))
	}

	_, err = fmt.Fprintf(c.App.Writer, "compatible %s\n", e.exp.Metadata)
	return err
}

func (e *env) fetch(c *cli.Context) error {
	transport, err := e.dial()
	if err != nil {
		return err
	}

	at, err := transport.BlockHash(e.ctx)
	if err != nil {
		return fmt.Errorf("fetching best block hash: %w", err)
	}

	raw, err := transport.Metadata(e.ctx, &at)
	if err != nil {
		return fmt.Errorf("fetching metadata: %w", err)
	}

	desc, err := metadata.Parse(raw)
	if err != nil {
		return err
	}
	logger.Infof("fetched metadata V%d with %d pallets", desc.Version(), len(desc.Pallets()))

	cache, err := e.openCache()
	if err != nil {
		return err
	}
	if cache != nil {
		version, err := transport.RuntimeVersion(e.ctx, &at)
		if err != nil {
			return fmt.Errorf("fetching runtime version: %w", err)
		}
		err = cache.Put(version.SpecName, version.SpecVersion, raw)
		if err != nil {
			return err
		}
		logger.Infof("cached metadata of %s version %d", version.SpecName, version.SpecVersion)
	}

	output := c.String(OutputFlag.Name)
	if output == "" {
		if c.Bool(CompressFlag.Name) {
			return fmt.Errorf("%w: --compress needs --output", errMissingArguments)
		}
		_, err = fmt.Fprintln(c.App.Writer, common.BytesToHex(raw))
		return err
	}

	if c.Bool(CompressFlag.Name) {
		raw, err = metadata.Compress(raw)
		if err != nil {
			return err
		}
	}

	err = os.WriteFile(filepath.Clean(output), raw, 0o600)
	if err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	return nil
}

func (e *env) get(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}
	args := c.Args()
	pallet, item := args[0], args[1]

	parts, err := parseValues(args[2:])
	if err != nil {
		return err
	}

	cl, err := e.connect(true)
	if err != nil {
		return err
	}

	key, err := cl.Codec().Key(pallet, item, parts...)
	if err != nil {
		return err
	}

	if !key.IterationOnly() {
		v, found, err := cl.Fetch(e.ctx, pallet, item, parts...)
		if err != nil {
			return err
		}
		if !found {
			logger.Infof("no value stored at %s", key.Hex())
		}
		_, err = fmt.Fprintln(c.App.Writer, v)
		return err
	}

	limit := c.Int(LimitFlag.Name)
	count := 0
	err = cl.Iterate(e.ctx, pallet, item, parts, uint32(c.Uint(PageSizeFlag.Name)),
		func(entry client.Entry) error {
			_, err := fmt.Fprintf(c.App.Writer, "%s => %s\n", formatParts(entry.Parts), entry.Value)
			if err != nil {
				return err
			}
			count++
			if limit > 0 && count >= limit {
				return errLimitReached
			}
			return nil
		})
	if errors.Is(err, errLimitReached) {
		return nil
	}
	return err
}

func formatParts(parts []value.Value) string {
	s := make([]string, len(parts))
	for i, part := range parts {
		s[i] = part.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

func (e *env) events(c *cli.Context) error {
	var at *common.Hash
	if s := c.String(AtFlag.Name); s != "" {
		hash, err := common.HexToHash(s)
		if err != nil {
			return fmt.Errorf("parsing block hash: %w", err)
		}
		at = &hash
	}

	cl, err := e.connect(true)
	if err != nil {
		return err
	}

	records, err := cl.Events(e.ctx, at)
	printErr := printRecords(c.App.Writer, records)
	if err != nil {
		return err
	}
	return printErr
}

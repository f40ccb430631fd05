package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/6529-Collections/6529stats/internal/config"
	"github.com/6529-Collections/6529stats/internal/db"
	"github.com/6529-Collections/6529stats/internal/store"
)

func main() {
	dbPath := flag.String("db", config.Get().BadgerPath, "Path to the Badger directory")
	entity := flag.String("entity", "", "Only dump one entity type (holder, collection, burn, burnstat, burner, action, position, pool, processed)")
	outputMode := flag.String("o", "console", "Output mode: 'console' or 'file'")
	outputFile := flag.String("f", "dump.txt", "Output file (if mode is 'file')")
	flag.Parse()

	out := io.Writer(os.Stdout)
	if *outputMode == "file" {
		f, err := os.Create(*outputFile)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	kv, err := db.OpenBadgerReadOnly(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open BadgerDB: %v", err)
	}
	defer kv.Close()

	n, err := dump(context.Background(), out, store.NewBadgerStore(kv), *entity)
	if err != nil {
		log.Fatalf("Error while iterating: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Dump complete, %d entries.\n", n)
}

// dump writes every stored entity under the entity prefix as indented JSON.
func dump(ctx context.Context, w io.Writer, s store.Store, entity string) (int, error) {
	prefix := "stats:"
	if entity != "" {
		prefix += strings.TrimSuffix(entity, ":") + ":"
	}
	count := 0
	err := s.View(ctx, func(tx store.Tx) error {
		return tx.Scan([]byte(prefix), func(key, value []byte) error {
			count++
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, value, "  ", "  "); err != nil {
				// not JSON, print raw
				pretty.Reset()
				pretty.Write(value)
			}
			_, err := fmt.Fprintf(w, "%s\n  %s\n", key, pretty.String())
			return err
		})
	})
	return count, err
}

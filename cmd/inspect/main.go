package main

import (
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// inspect dumps the relay journal, it can run next to a live relay.
func main() {
	dbPath := flag.String("db", "./data/journal", "Path to the journal")
	session := flag.String("session", "", "Only dump this session")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	prefix := "msg:"
	if *session != "" {
		prefix = string(repositories.SessionPrefix(*session))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Session", "Timestamp", "ID", "Origin", "Connection", "Text"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				msg, err := repositories.DecodeMessage(v)
				if err != nil {
					// Keep dumping the rest of the journal
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append([]string{
					msg.Session,
					msg.At.Format(time.RFC3339Nano),
					msg.ID,
					msg.Origin,
					msg.Connection,
					strings.ReplaceAll(msg.Text, "\n", " "),
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while reading the journal: ", err)
	}

	table.Render()
	fmt.Printf("\n%d message(s)\n", count)
}

// openDB opens the journal read-only, BypassLockGuard lets it run while the relay holds the lock.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(opts)
}

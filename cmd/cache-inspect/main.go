package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"support-chat/domain"
	"support-chat/internal"
)

// cache-inspect dumps a widget's local badger cache: room records
// ("room:" prefix) and per-room message logs ("msgs:" prefix).
func main() {
	dbPath := flag.String("db", "/tmp/support-chat", "Path to badger DB")
	prefix := flag.String("prefix", "msgs:", "Prefix to scan (msgs: or room:)")
	serve := flag.Int("serve", 0, "Serve the HTML inspector on this port instead of dumping once")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if *serve > 0 {
		internal.StartDebugServer(db, *serve, "/inspect")
		fmt.Printf("Inspector on http://localhost:%d/inspect?prefix=%s\n", *serve, *prefix)
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Room", "Count / Customer", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				switch {
				case strings.HasPrefix(rawKey, "msgs:"):
					var messages []domain.Message
					if err := json.Unmarshal(v, &messages); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
						return nil
					}
					detail := ""
					if len(messages) > 0 {
						last := messages[len(messages)-1]
						detail = fmt.Sprintf("last %s @ %s: %s",
							last.Role, last.SentAt.Format("15:04:05"), trim(last.Content))
					}
					roomID := domain.RoomID(0)
					if len(messages) > 0 {
						roomID = messages[0].RoomID
					}
					table.Append([]string{
						rawKey,
						fmt.Sprintf("%d", roomID),
						fmt.Sprintf("%d", len(messages)),
						detail,
					})
				case strings.HasPrefix(rawKey, "room:"):
					var room domain.Room
					if err := json.Unmarshal(v, &room); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
						return nil
					}
					table.Append([]string{
						rawKey,
						fmt.Sprintf("%d", room.ID),
						fmt.Sprintf("%d", room.CustomerID),
						room.CustomerName,
					})
				default:
					table.Append([]string{rawKey, "", "", fmt.Sprintf("%d bytes", len(v))})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func trim(content string) string {
	if len(content) > 40 {
		return content[:40] + "..."
	}
	return content
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// Corrupted value log: a single writable open truncates it, then
		// reopen read-only.
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}

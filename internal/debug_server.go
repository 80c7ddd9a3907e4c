package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"support-chat/domain"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key      string
	Kind     string
	Room     string
	Customer string
	Count    string
	Detail   string
}

type PageData struct {
	Prefix string
	Items  []InspectRow
}

// StartDebugServer serves an HTML view of the local cache so a paused
// session can be inspected from a browser. Pass ?prefix=room: to list the
// durable room records instead of the message logs.
func StartDebugServer(db *badger.DB, port int, endpoint string) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msgs:"
		}

		data := PageData{Prefix: prefix}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapRow(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

func mapRow(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:    key,
		Kind:   "RAW",
		Detail: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	var messages []domain.Message
	if err := json.Unmarshal(val, &messages); err == nil && len(messages) > 0 {
		last := messages[len(messages)-1]
		row.Kind = "LOG"
		row.Room = strconv.Itoa(int(last.RoomID))
		row.Count = strconv.Itoa(len(messages))
		row.Detail = fmt.Sprintf("last %s @ %s: %s",
			last.Role, last.SentAt.Format("15:04:05"), last.Content)
		return row
	}

	var room domain.Room
	if err := json.Unmarshal(val, &room); err == nil && room.ID != 0 {
		row.Kind = "ROOM"
		row.Room = strconv.Itoa(int(room.ID))
		row.Customer = strconv.Itoa(room.CustomerID)
		row.Detail = room.CustomerName
	}
	return row
}

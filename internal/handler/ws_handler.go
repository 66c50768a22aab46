package handler

import "net/http"

// WSHandler attaches a websocket to the visitor's hub.
func WSHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	client.Hub.Serve(w, r)
}

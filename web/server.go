package web

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/gltf_loader/config"
	"github.com/mogaika/gltf_loader/fetch"
	"github.com/mogaika/gltf_loader/vfs"
)

var ServerDirectory vfs.Directory

// assetFetcher serves relative and absolute paths from ServerDirectory only.
// It has no http fetcher, so manifests cannot make the server issue requests.
func assetFetcher() fetch.Fetcher {
	return &fetch.Router{
		Local:     &fetch.DirFetcher{Root: ServerDirectory},
		Timeout:   config.GetFetchTimeout(),
		Sandboxed: true,
	}
}

func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/asset", HandlerAjaxAsset).Methods(http.MethodGet)
	r.HandleFunc("/export/asset", HandlerExportAsset).Methods(http.MethodGet)
	r.HandleFunc("/dump/asset", HandlerDumpAsset).Methods(http.MethodGet)
	r.HandleFunc("/json/assets", HandlerAjaxAssetList).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", HandlerStatusWebsocket)
	r.HandleFunc("/assets/{path:.*}", HandlerAssetFile).Methods(http.MethodGet)
	return r
}

func StartServer(addr string, d vfs.Directory) error {
	ServerDirectory = d

	h := handlers.RecoveryHandler()(NewRouter())
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}

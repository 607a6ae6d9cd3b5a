package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/gltf_loader/config"
	"github.com/mogaika/gltf_loader/fetch"
	"github.com/mogaika/gltf_loader/gltf"
	"github.com/mogaika/gltf_loader/loader"
	"github.com/mogaika/gltf_loader/model"
	"github.com/mogaika/gltf_loader/status"
	"github.com/mogaika/gltf_loader/utils"
	"github.com/mogaika/gltf_loader/utils/gltfutils"
	"github.com/mogaika/gltf_loader/vfs"
	"github.com/mogaika/gltf_loader/webutils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, fetch.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, gltf.ErrFormat), errors.Is(err, gltf.ErrResolution):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// loadFromRequest loads the asset named by the url query parameter. On
// failure it also returns the http status to answer with.
func loadFromRequest(r *http.Request) (*model.Mesh, int, error) {
	q := r.URL.Query()
	url := q.Get("url")
	if url == "" {
		return nil, http.StatusBadRequest, errors.New("Missing 'url' parameter")
	}
	if fetch.IsRemote(url) {
		return nil, http.StatusBadRequest, errors.Errorf("Remote url %q is not served, only assets of the served directory", url)
	}

	scale := config.GetDefaultScale()
	if s := q.Get("scale"); s != "" {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, http.StatusBadRequest, errors.Wrapf(err, "Invalid 'scale' parameter %q", s)
		}
		scale = float32(f)
	}

	mesh, err := loader.GetInstance().LoadAsset(r.Context(), url, scale, nil,
		loader.WithFetcher(assetFetcher()))
	if err != nil {
		return nil, errorStatus(err), err
	}
	return mesh, http.StatusOK, nil
}

func HandlerAjaxAsset(w http.ResponseWriter, r *http.Request) {
	mesh, code, err := loadFromRequest(r)
	if err != nil {
		webutils.WriteErrorStatus(w, code, err)
		return
	}

	data, err := json.Marshal(mesh)
	if err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			webutils.WriteErrorStatus(w, http.StatusUnprocessableEntity,
				errors.Wrapf(err, "Mesh %q has decoded values not representable in json (NaN or Inf)", mesh.Name))
		} else {
			webutils.WriteError(w, err)
		}
		return
	}
	webutils.WriteJsonData(w, data)
}

func HandlerDumpAsset(w http.ResponseWriter, r *http.Request) {
	mesh, code, err := loadFromRequest(r)
	if err != nil {
		webutils.WriteErrorStatus(w, code, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	webutils.WriteResult(w, []byte(utils.SDump(mesh)))
}

func HandlerExportAsset(w http.ResponseWriter, r *http.Request) {
	mesh, code, err := loadFromRequest(r)
	if err != nil {
		webutils.WriteErrorStatus(w, code, err)
		return
	}

	var buf bytes.Buffer
	if err := gltfutils.ExportMesh(&buf, mesh); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Cannot export %q", mesh.Name))
		return
	}

	name := path.Base(r.URL.Query().Get("url"))
	name = strings.TrimSuffix(name, path.Ext(name))
	webutils.WriteFile(w, &buf, name+".glb")
}

func HandlerAjaxAssetList(w http.ResponseWriter, r *http.Request) {
	if files, err := ServerDirectory.List(); err != nil {
		webutils.WriteError(w, err)
	} else {
		sort.Strings(files)
		webutils.WriteJson(w, files)
	}
}

func HandlerAssetFile(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	data, err := vfs.ReadFile(ServerDirectory, p)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
		return
	}
	http.ServeContent(w, r, path.Base(p), time.Time{}, bytes.NewReader(data))
}

func HandlerStatusWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		return
	}
	status.NewClient(conn)
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/mogaika/gltf_loader/config"
	"github.com/mogaika/gltf_loader/loader"
	"github.com/mogaika/gltf_loader/utils"
	"github.com/mogaika/gltf_loader/utils/gltfutils"
	"github.com/mogaika/gltf_loader/vfs"
	"github.com/mogaika/gltf_loader/web"
)

func main() {
	var addr, dir, load, export, configPath, encoding string
	var scale float64
	var dump, verbose bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to directory with assets to serve")
	flag.StringVar(&load, "load", "", "Manifest url or path to load and summarize")
	flag.Float64Var(&scale, "scale", 0, "Scale applied to positions, 0 - use config default_scale")
	flag.BoolVar(&dump, "dump", false, "Dump loaded mesh with all decoded arrays")
	flag.StringVar(&export, "export", "", "Write loaded mesh as glb to this path")
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&encoding, "encoding", "", "Manifest text encoding override")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if configPath != "" {
		if err := config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	}
	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatalf("%v, available: %v", err, config.ListEncodings())
		}
	}
	if verbose {
		config.SetVerbose(true)
	}
	if scale == 0 {
		scale = float64(config.GetDefaultScale())
	}

	if load != "" {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		mesh, err := loader.GetInstance().LoadAsset(ctx, load, float32(scale), nil)
		if err != nil {
			log.Fatal(err)
		}

		if dump {
			utils.Dump(mesh)
		} else {
			writeSummary(os.Stdout, mesh)
		}

		if export != "" {
			f, err := os.Create(export)
			if err != nil {
				log.Fatal(err)
			}
			if err := gltfutils.ExportMesh(f, mesh); err != nil {
				f.Close()
				log.Fatal(err)
			}
			if err := f.Close(); err != nil {
				log.Fatal(err)
			}
			log.Printf("[main] Exported %q to %s", mesh.Name, export)
		}
		return
	}

	if dir == "" {
		flag.PrintDefaults()
		return
	}

	root := vfs.NewDirectoryDriver(dir)
	log.Printf("[main] Serving assets from %s", root.Path())
	if err := web.StartServer(addr, root); err != nil {
		log.Fatal(err)
	}
}

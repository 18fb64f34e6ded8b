package blockcache_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/blockcache"
)

func Example() {
	dir, err := os.MkdirTemp("", "blocks")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "blk00000.dat")
	if err := os.WriteFile(path, []byte("genesis block payload"), 0o644); err != nil {
		log.Fatal(err)
	}

	files := []blockcache.Descriptor{
		{FileID: 0, Path: path, SizeBytes: 21},
	}

	cache, err := blockcache.New(files,
		blockcache.WithPrefetch(blockcache.PrefetchForward),
		blockcache.WithEvictionThreshold(64<<20),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	var cur blockcache.Cursor
	defer cur.Close()

	view, err := cache.GetBytes(0, 8, 5, &cur)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(view))
	// Output: block
}

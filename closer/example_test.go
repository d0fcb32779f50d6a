package closer_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvd-rw/dvdrw/closer"
)

func writeCassette(path string, data []byte) (err error) {
	f, err := os.Create(path) //#nosec:G304 // example
	if err != nil {
		return err
	}
	defer closer.ErrorHandler(f, &err)

	_, err = f.Write(data)
	return err
}

func ExampleErrorHandler() {
	dir, err := os.MkdirTemp("", "closer")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	err = writeCassette(filepath.Join(dir, "c.json"), []byte(`{"version":1}`))
	fmt.Println(err)
	// Output: <nil>
}

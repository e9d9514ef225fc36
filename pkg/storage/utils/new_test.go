package storageutils_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/storage/inmemory"
	"github.com/papercomputeco/verity/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/verity/pkg/storage/utils"
)

var _ = Describe("NewDriver", func() {
	ctx := context.Background()

	It("builds an in-memory driver", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "memory"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("builds a SQLite driver at the given path", func() {
		dir, err := os.MkdirTemp("", "storageutils-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(dir) })

		path := filepath.Join(dir, "facts.sqlite")
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "sqlite", SQLitePath: path})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlite.SQLiteDriver{}))
		Expect(d.Close()).To(Succeed())

		_, err = os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a path for SQLite", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "sqlite"})
		Expect(err).To(MatchError(ContainSubstring("requires a database path")))
	})

	It("requires a DSN for PostgreSQL", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "postgres"})
		Expect(err).To(MatchError(ContainSubstring("requires a connection string")))
	})

	It("rejects unknown providers", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "mongo"})
		Expect(err).To(MatchError("unsupported storage provider: mongo"))
	})
})

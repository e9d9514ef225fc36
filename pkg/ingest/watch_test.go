package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/ingest"
)

var _ = Describe("WatchSpool", func() {
	var (
		dir     string
		mu      sync.Mutex
		handled []string
		ctx     context.Context
		cancel  context.CancelFunc
		done    chan error
	)

	handledNames := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), handled...)
	}

	handler := func(_ context.Context, path string) error {
		mu.Lock()
		handled = append(handled, filepath.Base(path))
		mu.Unlock()

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), "poison") {
			return errors.New("batch rejected")
		}
		return nil
	}

	spool := func(name, content string) {
		tmp := filepath.Join(dir, name+".tmp")
		Expect(os.WriteFile(tmp, []byte(content), 0o600)).To(Succeed())
		Expect(os.Rename(tmp, filepath.Join(dir, name))).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "verity-spool-test-*")
		Expect(err).NotTo(HaveOccurred())

		handled = nil
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
	})

	AfterEach(func() {
		cancel()
		Eventually(done, 2*time.Second).Should(Receive())
		os.RemoveAll(dir)
	})

	start := func() {
		go func() {
			done <- ingest.WatchSpool(ctx, dir, handler, nil)
		}()
	}

	It("handles files already spooled, in name order", func() {
		spool("b.jsonl", "{}\n")
		spool("a.jsonl", "{}\n")

		start()

		Eventually(handledNames, 2*time.Second).Should(Equal([]string{"a.jsonl", "b.jsonl"}))
		Eventually(func() error {
			_, err := os.Stat(filepath.Join(dir, "a.jsonl.done"))
			return err
		}, 2*time.Second).Should(Succeed())
	})

	It("picks up batches renamed into the directory", func() {
		start()
		spool("turn-1.jsonl", "{}\n")

		Eventually(handledNames, 2*time.Second).Should(ContainElement("turn-1.jsonl"))
		Eventually(func() error {
			_, err := os.Stat(filepath.Join(dir, "turn-1.jsonl.done"))
			return err
		}, 2*time.Second).Should(Succeed())
		Consistently(handledNames, 200*time.Millisecond).Should(HaveLen(1))
	})

	It("marks batches whose handler fails", func() {
		spool("bad.jsonl", "poison\n")

		start()

		Eventually(func() error {
			_, err := os.Stat(filepath.Join(dir, "bad.jsonl.failed"))
			return err
		}, 2*time.Second).Should(Succeed())
	})

	It("ignores files that are not batches", func() {
		start()

		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600)).To(Succeed())
		Consistently(handledNames, 200*time.Millisecond).Should(BeEmpty())
	})

	It("stops when the context is done", func() {
		start()
		cancel()

		var err error
		Eventually(done, 2*time.Second).Should(Receive(&err))
		Expect(err).To(MatchError(context.Canceled))

		// AfterEach expects one more value.
		done <- nil
	})
})

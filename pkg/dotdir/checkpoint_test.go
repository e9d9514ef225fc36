package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/dotdir"
)

var _ = Describe("dotdir.Manager ingest checkpoint", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadCheckpoint", func() {
		It("returns nil when no checkpoint file exists", func() {
			cp, err := m.LoadCheckpoint(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cp).To(BeNil())
		})

		It("loads a valid checkpoint", func() {
			data := `{"source":"/data/facts.jsonl","line":42,"updated_at":"2026-01-02T03:04:05Z"}`
			err := os.WriteFile(filepath.Join(tmpDir, "ingest_checkpoint.json"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			cp, err := m.LoadCheckpoint(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cp).NotTo(BeNil())
			Expect(cp.Source).To(Equal("/data/facts.jsonl"))
			Expect(cp.Line).To(Equal(42))
			Expect(cp.UpdatedAt).To(Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
		})

		It("returns error for malformed JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "ingest_checkpoint.json"), []byte("{not json"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			_, err = m.LoadCheckpoint(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing ingest checkpoint"))
		})
	})

	Describe("SaveCheckpoint", func() {
		It("persists and reloads a checkpoint", func() {
			cp := &dotdir.IngestCheckpoint{Source: "/data/facts.jsonl", Line: 7}
			Expect(m.SaveCheckpoint(cp, tmpDir)).To(Succeed())

			loaded, err := m.LoadCheckpoint(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Source).To(Equal("/data/facts.jsonl"))
			Expect(loaded.Line).To(Equal(7))
		})

		It("overwrites an existing checkpoint", func() {
			Expect(m.SaveCheckpoint(&dotdir.IngestCheckpoint{Source: "a", Line: 1}, tmpDir)).To(Succeed())
			Expect(m.SaveCheckpoint(&dotdir.IngestCheckpoint{Source: "a", Line: 9}, tmpDir)).To(Succeed())

			loaded, err := m.LoadCheckpoint(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Line).To(Equal(9))
		})

		It("returns error for nil checkpoint", func() {
			err := m.SaveCheckpoint(nil, tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("nil ingest checkpoint"))
		})
	})

	Describe("ClearCheckpoint", func() {
		It("removes an existing checkpoint", func() {
			Expect(m.SaveCheckpoint(&dotdir.IngestCheckpoint{Source: "a", Line: 3}, tmpDir)).To(Succeed())
			Expect(m.ClearCheckpoint(tmpDir)).To(Succeed())

			cp, err := m.LoadCheckpoint(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cp).To(BeNil())
		})

		It("is a no-op when nothing is saved", func() {
			Expect(m.ClearCheckpoint(tmpDir)).To(Succeed())
		})
	})
})

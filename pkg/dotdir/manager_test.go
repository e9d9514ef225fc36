package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/dotdir"
)

var _ = Describe("dotdir.Manager", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	// chdir moves into dir until the test ends.
	chdir := func(dir string) {
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(orig) })
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("creates an override directory that does not exist yet", func() {
			dir := filepath.Join(tmpDir, "team", "kb")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))
			Expect(dir).To(BeADirectory())
		})

		It("prefers the override over a local .verity dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, dotdir.DirName), 0o755)).To(Succeed())
			chdir(tmpDir)

			override := filepath.Join(tmpDir, "override")
			Expect(m.Target(override)).To(Equal(override))
		})

		It("uses the local .verity dir when there is no override", func() {
			local := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			Expect(m.Target("")).To(Equal(local))
		})

		It("ignores a local .verity that is a plain file", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, dotdir.DirName), nil, 0o600)).To(Succeed())
			home := filepath.Join(tmpDir, "home")
			Expect(os.Mkdir(home, 0o755)).To(Succeed())
			chdir(tmpDir)
			GinkgoT().Setenv("HOME", home)

			Expect(m.Target("")).To(Equal(filepath.Join(home, dotdir.DirName)))
		})

		It("falls back to ~/.verity and creates it", func() {
			work := filepath.Join(tmpDir, "work")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			chdir(work)
			GinkgoT().Setenv("HOME", tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(tmpDir, dotdir.DirName)))
			Expect(result).To(BeADirectory())
		})
	})

	Describe("File", func() {
		It("places verity's files inside the target", func() {
			for _, name := range []string{dotdir.ConfigFile, dotdir.StoreFile, dotdir.CheckpointFile} {
				Expect(m.File(tmpDir, name)).To(Equal(filepath.Join(tmpDir, name)))
			}
		})
	})

	Describe("InitLocal", func() {
		BeforeEach(func() {
			chdir(tmpDir)
		})

		It("creates ./.verity once", func() {
			dir, created, err := m.InitLocal()
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(dir).To(Equal(filepath.Join(tmpDir, dotdir.DirName)))
			Expect(dir).To(BeADirectory())

			again, created, err := m.InitLocal()
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(again).To(Equal(dir))
		})

		It("refuses to replace a file named .verity", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, dotdir.DirName), []byte("x"), 0o600)).To(Succeed())

			_, _, err := m.InitLocal()
			Expect(err).To(MatchError(ContainSubstring("not a directory")))
		})
	})
})

package veritycmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	veritycmder "github.com/papercomputeco/verity/cmd/verity"
)

const batch = `{"kind":"relational","user_id":"u1","subject":"Globex","predicate":"industry","value":"Retail","confidence_score":0.8,"source_authority":"CHAT"}
{"kind":"risk","user_id":"u1","title":"Key customer churn","value":"high","confidence_score":0.7,"source_authority":"CRM"}
{"kind":"opinion","user_id":"u1","value":"x","confidence_score":0.5,"source_authority":"CHAT"}

{"kind":"relational","user_id":"u1","subject":"Globex","predicate":"industry","value":"Retail","confidence_score":0.9,"source_authority":"CHAT"}
`

var _ = Describe("NewVerityCmd", func() {
	It("registers every subcommand", func() {
		cmd := veritycmder.NewVerityCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("verify", "ingest", "watch", "facts", "conflicts", "config", "init", "version"))
	})

	It("has global debug, config-dir and log-file flags", func() {
		cmd := veritycmder.NewVerityCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("log-file")).NotTo(BeNil())
	})
})

var _ = Describe("Verity command execution", func() {
	var dir string

	execute := func(args ...string) (string, error) {
		cmd := veritycmder.NewVerityCmd()
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(append(args, "--config-dir", dir))
		err := cmd.Execute()
		return out.String(), err
	}

	verify := func(args ...string) map[string]any {
		out, err := execute(append([]string{"verify", "--user", "u1", "--json"}, args...)...)
		Expect(err).NotTo(HaveOccurred())

		var res map[string]any
		Expect(json.Unmarshal([]byte(out), &res)).To(Succeed())
		return res
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "verity-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("resolves a relational walkthrough against the sqlite store", func() {
		out, err := execute("verify", "--user", "u1", "--subject", "Acme", "--predicate", "industry", "--value", "SaaS")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("INSERT"))

		_, err = os.Stat(filepath.Join(dir, "verity.sqlite"))
		Expect(err).NotTo(HaveOccurred())

		res := verify("--subject", "Acme", "--predicate", "industry", "--value", "SaaS")
		Expect(res["action"]).To(Equal("CONFIRM"))

		res = verify("--subject", "Acme", "--predicate", "industry", "--value", "Cloud Infrastructure", "--authority", "ERP", "--confidence", "0.95")
		Expect(res["action"]).To(Equal("UPDATE"))
		Expect(res["superseded_id"]).NotTo(BeEmpty())

		out, err = execute("facts", "--user", "u1", "--kind", "relational", "--json")
		Expect(err).NotTo(HaveOccurred())

		var facts []map[string]any
		Expect(json.Unmarshal([]byte(out), &facts)).To(Succeed())
		Expect(facts).To(HaveLen(1))
		Expect(facts[0]["value"]).To(Equal("Cloud Infrastructure"))
		Expect(facts[0]["source_authority"]).To(Equal("ERP"))
	})

	It("records contested context values as conflicts", func() {
		res := verify("--kind", "context", "--key", "fiscal_year_end", "--value", "March")
		Expect(res["action"]).To(Equal("INSERT"))

		res = verify("--kind", "context", "--key", "fiscal_year_end", "--value", "April")
		Expect(res["action"]).To(Equal("CONTESTED"))
		Expect(res["conflict_id"]).NotTo(BeEmpty())

		out, err := execute("conflicts", "--user", "u1", "--json")
		Expect(err).NotTo(HaveOccurred())

		var conflicts []map[string]any
		Expect(json.Unmarshal([]byte(out), &conflicts)).To(Succeed())
		Expect(conflicts).To(HaveLen(1))
		Expect(conflicts[0]["fact_table"]).To(Equal("company_context"))

		out, err = execute("conflicts", "--user", "someone-else")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No pending conflicts."))
	})

	It("rejects unknown kinds and malformed dates", func() {
		_, err := execute("verify", "--user", "u1", "--kind", "opinion", "--value", "x")
		Expect(err).To(MatchError(ContainSubstring("unknown fact kind")))

		_, err = execute("verify", "--user", "u1", "--subject", "Acme", "--predicate", "industry", "--value", "SaaS", "--valid-from", "last tuesday")
		Expect(err).To(MatchError(ContainSubstring("--valid-from")))
	})

	It("ingests a batch, reports failures and resumes past processed lines", func() {
		input := filepath.Join(dir, "batch.jsonl")
		Expect(os.WriteFile(input, []byte(batch), 0o600)).To(Succeed())

		out, err := execute("ingest", input, "--workers", "2")
		Expect(err).To(MatchError(ContainSubstring("1 of 4 candidates failed")))
		Expect(out).To(ContainSubstring("line 3"))

		out, err = execute("facts", "--user", "u1", "--json")
		Expect(err).NotTo(HaveOccurred())

		var facts []map[string]any
		Expect(json.Unmarshal([]byte(out), &facts)).To(Succeed())
		Expect(facts).To(HaveLen(2))

		out, err = execute("ingest", input, "--resume")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Processed 0 candidates"))
	})

	It("watches a spool directory until interrupted", func() {
		spool := filepath.Join(dir, "spool")
		Expect(os.MkdirAll(spool, 0o755)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			cmd := veritycmder.NewVerityCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"watch", spool, "--config-dir", dir})
			done <- cmd.ExecuteContext(ctx)
		}()

		tmp := filepath.Join(dir, "turn.tmp")
		Expect(os.WriteFile(tmp, []byte(batch), 0o600)).To(Succeed())
		Expect(os.Rename(tmp, filepath.Join(spool, "turn.jsonl"))).To(Succeed())

		// The batch carries one bad line, so it lands as failed.
		Eventually(func() error {
			_, err := os.Stat(filepath.Join(spool, "turn.jsonl.failed"))
			return err
		}, 5*time.Second).Should(Succeed())

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))

		out, err := execute("facts", "--user", "u1", "--kind", "risk", "--json")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Key customer churn"))
	})

	It("prints the version", func() {
		out, err := execute("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Version: dev"))
		Expect(out).To(ContainSubstring("Event schema: v1"))
	})

	It("prints the version as JSON", func() {
		out, err := execute("version", "--json")
		Expect(err).NotTo(HaveOccurred())

		var report map[string]any
		Expect(json.Unmarshal([]byte(out), &report)).To(Succeed())
		Expect(report).To(HaveKeyWithValue("version", "dev"))
		Expect(report).To(HaveKeyWithValue("event_schema_version", BeNumerically("==", 1)))
	})
})

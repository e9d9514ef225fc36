package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("B2B SaaS", 10)).To(Equal("B2B SaaS"))
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("keeps the result within the limit, ellipsis included", func() {
		Expect(Truncate("Cloud Infrastructure", 10)).To(Equal("Cloud I..."))
	})

	It("cuts on rune boundaries", func() {
		Expect(Truncate("€3.2M in annual recurring revenue", 8)).To(Equal("€3.2M..."))
	})

	It("degrades for tiny limits", func() {
		Expect(Truncate("revenue", 2)).To(Equal(".."))
		Expect(Truncate("revenue", 0)).To(BeEmpty())
	})
})

var _ = Describe("Build", func() {
	It("reports the linked version variables", func() {
		info := Build()
		Expect(info.Version).To(Equal(Version))
		Expect(info.Sha).To(Equal(Sha))
		Expect(info.GoVersion).NotTo(BeEmpty())
	})
})

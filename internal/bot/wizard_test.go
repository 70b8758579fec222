package bot_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/report-management/internal/bot"
)

var _ = Describe("ParseParentChoice", func() {
	It("should treat skip words as a root department", func() {
		for _, input := range []string{"skip", "SKIP", "-", "none", "", "  "} {
			id, ok := bot.ParseParentChoice(input)
			Expect(ok).To(BeTrue(), "input %q", input)
			Expect(id).To(BeNil(), "input %q", input)
		}
	})

	It("should parse a positive department id", func() {
		id, ok := bot.ParseParentChoice(" 42 ")
		Expect(ok).To(BeTrue())
		Expect(id).ToNot(BeNil())
		Expect(*id).To(Equal(int64(42)))
	})

	It("should reject garbage and non-positive ids", func() {
		for _, input := range []string{"abc", "0", "-5", "1,2"} {
			_, ok := bot.ParseParentChoice(input)
			Expect(ok).To(BeFalse(), "input %q", input)
		}
	})
})

var _ = Describe("IsConfirmation", func() {
	It("should accept the confirm words in any case", func() {
		for _, input := range []string{"yes", "Yes", " y ", "confirm", "OK", "نعم"} {
			Expect(bot.IsConfirmation(input)).To(BeTrue(), "input %q", input)
		}
	})

	It("should reject everything else", func() {
		for _, input := range []string{"no", "yep", "", "cancel"} {
			Expect(bot.IsConfirmation(input)).To(BeFalse(), "input %q", input)
		}
	})
})

var _ = Describe("WizardStore", func() {
	var store *bot.WizardStore

	BeforeEach(func() {
		store = bot.NewWizardStore()
	})

	It("should keep one state per user", func() {
		store.Start(1, bot.WizardReport, bot.StepReportTitle)
		store.Start(1, bot.WizardDepartment, bot.StepDeptName)

		state, ok := store.Get(1)
		Expect(ok).To(BeTrue())
		Expect(state.Kind).To(Equal(bot.WizardDepartment))
	})

	It("should report whether a clear removed anything", func() {
		store.Start(1, bot.WizardReport, bot.StepReportTitle)

		Expect(store.Clear(1)).To(BeTrue())
		Expect(store.Clear(1)).To(BeFalse())

		_, ok := store.Get(1)
		Expect(ok).To(BeFalse())
	})
})

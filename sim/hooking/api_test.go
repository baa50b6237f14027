package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Task API", func() {
	var (
		domain *testDomain
		hook   *recordingHook
	)

	BeforeEach(func() {
		domain = &testDomain{name: "r1"}
		hook = &recordingHook{}
	})

	It("should not invoke anything when no hook is attached", func() {
		StartTask(domain, "1", "", "packet", "r1->r3", "")
		Expect(hook.ctxs).To(BeEmpty())
	})

	It("should panic when a hook is registered twice", func() {
		domain.AcceptHook(hook)
		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
		Expect(domain.NumHooks()).To(Equal(1))
	})

	It("should report the domain as the default location", func() {
		domain.AcceptHook(hook)

		StartTask(domain, "1", "", "packet", "r1->r3", "")

		Expect(hook.ctxs).To(HaveLen(1))
		Expect(hook.ctxs[0].Pos).To(Equal(HookPosTaskStart))
		Expect(hook.ctxs[0].Domain).To(BeIdenticalTo(domain))
		Expect(hook.ctxs[0].Item.(TaskStart).Where).To(Equal("r1"))
	})

	It("should reject tasks without an id", func() {
		domain.AcceptHook(hook)

		Expect(func() {
			StartTask(domain, "", "", "packet", "r1->r3", "")
		}).To(Panic())
	})

	It("should deliver steps, tags and ends in order", func() {
		domain.AcceptHook(hook)

		StartTask(domain, "1", "", "packet", "r1->r3", "r1")
		AddTaskStep(domain, "1", "1.1", "hop", "forward", "r2")
		TagTask(domain, "1", "dropped", "")
		EndTask(domain, "1")

		Expect(hook.ctxs).To(HaveLen(4))
		Expect(hook.ctxs[1].Item).To(Equal(TaskStep{
			TaskID: "1", StepID: "1.1", Kind: "hop", What: "forward", Detail: "r2",
		}))
		Expect(hook.ctxs[2].Item).To(Equal(TaskTag{TaskID: "1", What: "dropped"}))
		Expect(hook.ctxs[3].Item).To(Equal(TaskEnd{ID: "1"}))
	})
})

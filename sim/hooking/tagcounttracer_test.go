package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TagCountTracer", func() {
	var tracer *TagCountTracer

	BeforeEach(func() {
		tracer = NewTagCountTracer(KindFilter("packet"))
	})

	It("should count the tags of the followed tasks", func() {
		tracer.StartTask(TaskStart{ID: "1", Kind: "packet"})
		tracer.StartTask(TaskStart{ID: "2", Kind: "packet"})
		tracer.StartTask(TaskStart{ID: "3", Kind: "control"})

		tracer.TagTask(TaskTag{TaskID: "1", What: "dropped"})
		tracer.TagTask(TaskTag{TaskID: "2", What: "unclaimed"})
		tracer.TagTask(TaskTag{TaskID: "3", What: "dropped"})
		tracer.EndTask(TaskEnd{ID: "1"})
		tracer.TagTask(TaskTag{TaskID: "1", What: "dropped"})

		Expect(tracer.GetTagNames()).To(Equal([]string{"dropped", "unclaimed"}))
		Expect(tracer.GetTagCount("dropped")).To(Equal(uint64(1)))
		Expect(tracer.GetTagCount("unclaimed")).To(Equal(uint64(1)))
		Expect(tracer.GetTagCount("unreachable")).To(Equal(uint64(0)))
	})
})

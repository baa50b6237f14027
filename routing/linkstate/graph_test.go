package linkstate

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/routesim/sim"
)

var _ = Describe("Graph", func() {
	var g Graph

	BeforeEach(func() {
		g = Graph{
			"a": {"b": {Version: 2, Exists: true}},
		}
	})

	It("should adopt unknown edges", func() {
		changed := g.merge(Graph{"b": {"a": {Version: 1, Exists: true}}})

		Expect(changed).To(BeTrue())
		Expect(g["b"]["a"]).To(Equal(Edge{Version: 1, Exists: true}))
	})

	It("should adopt strictly newer edges only", func() {
		Expect(g.merge(Graph{"a": {"b": {Version: 2, Exists: false}}})).
			To(BeFalse())
		Expect(g.merge(Graph{"a": {"b": {Version: 1, Exists: false}}})).
			To(BeFalse())
		Expect(g["a"]["b"].Exists).To(BeTrue())

		Expect(g.merge(Graph{"a": {"b": {Version: 3, Exists: false}}})).
			To(BeTrue())
		Expect(g["a"]["b"]).To(Equal(Edge{Version: 3, Exists: false}))
	})

	It("should deep copy", func() {
		c := g.Clone()
		c["a"]["b"] = Edge{Version: 9}

		Expect(g["a"]["b"].Version).To(Equal(2))
	})

	It("should list live neighbors in address order", func() {
		g.set("a", "d", Edge{Version: 1, Exists: true})
		g.set("a", "c", Edge{Version: 1, Exists: true})
		g.set("a", "b", Edge{Version: 4, Exists: false})

		Expect(g.neighbors("a")).To(Equal([]sim.Address{"c", "d"}))
		Expect(g.neighbors("x")).To(BeEmpty())
	})

	It("should carry a snapshot in the payload", func() {
		payload := GraphPayload{Graph: g}.Clone().(GraphPayload)
		g.set("a", "z", Edge{Version: 5, Exists: true})

		Expect(cmp.Diff(Graph{
			"a": {"b": {Version: 2, Exists: true}},
		}, payload.Graph)).To(BeEmpty())
	})
})

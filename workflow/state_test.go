package workflow_test

import (
	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("State", func() {
	DescribeTable("transitions",
		func(from, to workflow.State, allowed bool) {
			Expect(from.CanTransition(to)).To(Equal(allowed))
		},
		Entry("created to authenticated", workflow.StateCreated, workflow.StateAuthenticated, true),
		Entry("authenticated to resolved", workflow.StateAuthenticated, workflow.StateResolved, true),
		Entry("searched to granted", workflow.StateSearched, workflow.StateGranted, true),
		Entry("downloading to completed", workflow.StateDownloading, workflow.StateCompleted, true),
		Entry("any state to logged out", workflow.StateSearched, workflow.StateLoggedOut, true),
		Entry("created to logged out", workflow.StateCreated, workflow.StateLoggedOut, true),
		Entry("backwards", workflow.StateResolved, workflow.StateAuthenticated, false),
		Entry("same state", workflow.StateGranted, workflow.StateGranted, false),
		Entry("out of logged out", workflow.StateLoggedOut, workflow.StateCreated, false),
		Entry("logged out twice", workflow.StateLoggedOut, workflow.StateLoggedOut, false),
	)

	It("should be printable", func() {
		Expect(workflow.StateCompleted.String()).To(Equal("Completed"))
		s, err := workflow.StateString("Granted")
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(workflow.StateGranted))
	})
})

var _ = Describe("Target", func() {
	DescribeTable("validation",
		func(t workflow.Target, valid bool) {
			if valid {
				Expect(t.Validate()).To(Succeed())
			} else {
				Expect(t.Validate()).NotTo(Succeed())
			}
		},
		Entry("grid", workflow.GridTarget(137, 44), true),
		Entry("grid out of range", workflow.GridTarget(0, 44), false),
		Entry("row out of range", workflow.GridTarget(1, 249), false),
		Entry("point", workflow.PointTarget(-23.5, 179.9), true),
		Entry("latitude out of range", workflow.PointTarget(90.5, 0), false),
		Entry("longitude out of range", workflow.PointTarget(0, -181), false),
		Entry("aoi", workflow.AOITarget("POINT (1 2)"), true),
		Entry("blank aoi", workflow.AOITarget("  "), false),
		Entry("none", workflow.Target{}, false),
		Entry("two targets", workflow.Target{Grid: &common.GridRef{Path: 1, Row: 1}, WKT: "POINT (1 2)"}, false),
	)
})

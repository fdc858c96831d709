package email

const (
	subjectComplaintReceivedFmt  = "We received your complaint %s"
	subjectComplaintAssignedFmt  = "Your complaint %s has been assigned"
	subjectComplaintResolvedFmt  = "Your complaint %s has been resolved"
	subjectComplaintRejectedFmt  = "Update on your complaint %s"
	subjectComplaintInReviewFmt  = "Your complaint %s is being reviewed"
	subjectManualRoutingAlertFmt = "Complaint %s needs manual routing"
)

package exception

// Dashboard aggregates exception patterns for reporting surfaces.
type Dashboard struct {
	ByType      map[string]int `json:"by_type"`
	ByRequestor map[string]int `json:"by_requestor"`
	ByApprover  map[string]int `json:"by_approver"`
}

// BuildDashboard counts requests by type, requestor, and deciding approver.
func BuildDashboard(requests []*Request) Dashboard {
	dashboard := Dashboard{
		ByType:      make(map[string]int),
		ByRequestor: make(map[string]int),
		ByApprover:  make(map[string]int),
	}
	for _, request := range requests {
		dashboard.ByType[string(request.Type)]++
		dashboard.ByRequestor[request.Requestor]++
		if request.Approval != nil {
			dashboard.ByApprover[request.Approval.ApproverID]++
		}
	}
	return dashboard
}

package intent

// Action names the kind of request a user message is routed as.
type Action string

const (
	ActionFileRead        Action = "file_read"
	ActionDynamoDBQuery   Action = "dynamodb_query"
	ActionSCCQuery        Action = "scc_query"
	ActionRESTAPI         Action = "rest_api"
	ActionSALTroubleshoot Action = "sal_troubleshoot"
	ActionGeneralChat     Action = "general_chat"
)

var Actions = []Action{
	ActionFileRead,
	ActionDynamoDBQuery,
	ActionSCCQuery,
	ActionRESTAPI,
	ActionSALTroubleshoot,
	ActionGeneralChat,
}

func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Intent is the classifier's routing decision.
type Intent struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

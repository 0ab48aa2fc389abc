package conversation

// Intent labels produced by classification. The set is open-ended; anything
// unexpected from the classifier is folded into IntentOther.
const (
	IntentGreeting          = "greeting"
	IntentQuestion          = "question"
	IntentComplaint         = "complaint"
	IntentFeedback          = "feedback"
	IntentPurchaseIntent    = "purchase_intent"
	IntentHumanAgentRequest = "human_agent_request"
	IntentOther             = "other"
)

// HandoffReply is the fixed acknowledgment sent when a human agent is requested.
const HandoffReply = "Ik zal ervoor zorgen dat een medewerker contact met u opneemt. Bedankt voor uw geduld."

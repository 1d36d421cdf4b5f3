package app

import (
	"strings"
	"time"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

// Menu levels. The level is persisted on the session between requests and
// recorded on every interaction log entry.
const (
	MenuMain                = "main"
	MenuBalance             = "balance"
	MenuServices            = "services"
	MenuServiceSubscription = "service_subscription"
	MenuOrderTracking       = "order_tracking"
	MenuOrderResult         = "order_result"
	MenuSurvey              = "survey"
	MenuSurveyResponse      = "survey_response"
	MenuError               = "error"
)

// The aggregator protocol parses the first token of the response body:
// "CON " keeps the session open awaiting more input, "END " closes the
// dialogue. These prefixes must be reproduced exactly.
const (
	markerContinue = "CON "
	markerEnd      = "END "
)

const (
	mainMenuText = markerContinue + "Bienvenue sur notre service USSD\n1. Consultation de solde\n2. S'inscrire aux services\n3. Suivi de commande\n4. Sondages"

	servicesMenuText = markerContinue + "Choisissez un service:\n1. Service A\n2. Service B\n3. Service C"

	orderPromptText = markerContinue + "Entrez votre numéro de commande:"

	surveyMenuText = markerContinue + "Participez à notre sondage:\nÊtes-vous satisfait de nos services?\n1. Très satisfait\n2. Satisfait\n3. Peu satisfait"

	unknownOptionText    = markerEnd + "Option non reconnue. Veuillez réessayer."
	unknownServiceText   = markerEnd + "Service non reconnu. Veuillez réessayer."
	unknownSurveyText    = markerEnd + "Réponse non reconnue. Veuillez réessayer."
	surveyThanksText     = markerEnd + "Merci pour votre participation au sondage!"
	processingFailedText = markerEnd + "Une erreur s'est produite. Veuillez réessayer."
)

// SurveyIDSatisfaction and QuestionIDGeneral identify the single survey the
// menu currently runs.
const (
	SurveyIDSatisfaction = "satisfaction_survey"
	QuestionIDGeneral    = "general_satisfaction"
)

// simulatedBalanceFCFA stands in for a real balance lookup.
const simulatedBalanceFCFA = "10000"

var serviceChoices = map[string]string{
	"1": "Service A",
	"2": "Service B",
	"3": "Service C",
}

var surveyChoices = map[string]string{
	"1": "Très satisfait",
	"2": "Satisfait",
	"3": "Peu satisfait",
}

// Decision is the outcome of one menu step: the response to send back, the
// menu level to persist, a session-data patch, and any side effects the
// orchestrator must record.
type Decision struct {
	Response  string
	MenuLevel string
	DataPatch domain.SessionData

	// SubscribedService is set when a recognized service subscription must
	// be recorded.
	SubscribedService string

	// SurveyAnswer is set when a survey response must be recorded.
	SurveyAnswer string
}

// Terminal reports whether the decision ends the dialogue.
func (d Decision) Terminal() bool {
	return IsTerminal(d.Response)
}

// IsTerminal reports whether a response text carries the end-of-dialogue marker.
func IsTerminal(response string) bool {
	return strings.HasPrefix(response, strings.TrimSpace(markerEnd))
}

// MenuEngine is the USSD menu state machine. It is deliberately stateless: a
// pure function from (menu level, session data, input) to a Decision. All
// persisted state lives on the Session, which keeps this unit testable
// without a backing store.
type MenuEngine struct {
	now func() time.Time
}

func NewMenuEngine() *MenuEngine {
	return &MenuEngine{now: time.Now}
}

// MainMenu returns the main menu response, shown on every brand-new session
// and whenever the raw input is empty.
func (e *MenuEngine) MainMenu() string {
	return mainMenuText
}

// Decide computes the next response and menu level for a user input.
// Empty input always resets to the main menu regardless of the prior level.
func (e *MenuEngine) Decide(menuLevel string, data domain.SessionData, input string) Decision {
	switch {
	case input == "":
		return Decision{Response: mainMenuText, MenuLevel: MenuMain}

	case input == "1":
		return e.balanceInquiry()

	case input == "2":
		return Decision{Response: servicesMenuText, MenuLevel: MenuServices}

	case strings.HasPrefix(input, "2*"):
		choice, ok := splitChoice(input)
		if !ok {
			return Decision{Response: unknownOptionText, MenuLevel: MenuError}
		}
		return e.serviceSubscription(choice)

	case input == "3":
		return Decision{Response: orderPromptText, MenuLevel: MenuOrderTracking}

	case strings.HasPrefix(input, "3*"):
		orderNumber, ok := splitChoice(input)
		if !ok {
			return Decision{Response: unknownOptionText, MenuLevel: MenuError}
		}
		return e.orderTracking(orderNumber)

	case input == "4":
		return Decision{Response: surveyMenuText, MenuLevel: MenuSurvey}

	case strings.HasPrefix(input, "4*"):
		choice, ok := splitChoice(input)
		if !ok {
			return Decision{Response: unknownOptionText, MenuLevel: MenuError}
		}
		return e.surveyResponse(choice)

	default:
		return Decision{Response: unknownOptionText, MenuLevel: MenuError}
	}
}

// splitChoice splits "<n>*<rest>" on "*". Inputs with extra "*" separators do
// not yield exactly two parts and are rejected.
func splitChoice(input string) (string, bool) {
	parts := strings.Split(input, "*")
	if len(parts) != 2 {
		return "", false
	}
	return parts[1], true
}

func (e *MenuEngine) balanceInquiry() Decision {
	return Decision{
		Response:  markerEnd + "Votre solde est de " + simulatedBalanceFCFA + " FCFA",
		MenuLevel: MenuBalance,
		DataPatch: domain.SessionData{
			"last_balance_check": e.timestamp(),
		},
	}
}

func (e *MenuEngine) serviceSubscription(choice string) Decision {
	serviceName, ok := serviceChoices[choice]
	if !ok {
		return Decision{Response: unknownServiceText, MenuLevel: MenuError}
	}
	return Decision{
		Response:  markerEnd + "Vous êtes maintenant inscrit au " + serviceName + ". Merci!",
		MenuLevel: MenuServiceSubscription,
		DataPatch: domain.SessionData{
			"subscribed_service": serviceName,
			"subscription_date":  e.timestamp(),
		},
		SubscribedService: serviceName,
	}
}

func (e *MenuEngine) orderTracking(orderNumber string) Decision {
	return Decision{
		Response:  markerEnd + "Votre commande " + orderNumber + " est en cours de livraison.",
		MenuLevel: MenuOrderResult,
		DataPatch: domain.SessionData{
			"tracked_order": orderNumber,
			"tracking_date": e.timestamp(),
		},
	}
}

func (e *MenuEngine) surveyResponse(choice string) Decision {
	responseValue, ok := surveyChoices[choice]
	if !ok {
		return Decision{Response: unknownSurveyText, MenuLevel: MenuError}
	}
	return Decision{
		Response:  surveyThanksText,
		MenuLevel: MenuSurveyResponse,
		DataPatch: domain.SessionData{
			"survey_response": responseValue,
			"survey_date":     e.timestamp(),
		},
		SurveyAnswer: responseValue,
	}
}

func (e *MenuEngine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

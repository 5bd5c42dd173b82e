package console

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"user_admin_backend/internal/identity"
)

// Message keys.
const (
	msgLoadFailed      = "load.failed"
	msgCreateSucceeded = "create.succeeded"
	msgCreateDuplicate = "create.duplicate_email"
	msgCreateBadEmail  = "create.invalid_email"
	msgCreateWeakPass  = "create.weak_password"
	msgCreateFailed    = "create.failed"
	msgUpdateSucceeded = "update.succeeded"
	msgUpdateFailed    = "update.failed"
	msgDeleteSucceeded = "delete.succeeded"
	msgDeleteFailed    = "delete.failed"
	msgLogoutSucceeded = "logout.succeeded"
	msgLogoutFailed    = "logout.failed"
)

var translations = map[language.Tag]map[string]string{
	language.French: {
		msgLoadFailed:      "Échec du chargement des utilisateurs",
		msgCreateSucceeded: "Utilisateur créé avec succès",
		msgCreateDuplicate: "Cet email est déjà enregistré",
		msgCreateBadEmail:  "Adresse email invalide",
		msgCreateWeakPass:  "Le mot de passe doit contenir au moins 6 caractères",
		msgCreateFailed:    "Échec de la création de l'utilisateur",
		msgUpdateSucceeded: "Informations mises à jour avec succès",
		msgUpdateFailed:    "Échec de la mise à jour",
		msgDeleteSucceeded: "Utilisateur supprimé avec succès",
		msgDeleteFailed:    "Échec de la suppression",
		msgLogoutSucceeded: "Déconnexion réussie",
		msgLogoutFailed:    "Échec de la déconnexion",
	},
	language.English: {
		msgLoadFailed:      "Failed to load users",
		msgCreateSucceeded: "User created successfully",
		msgCreateDuplicate: "This email is already registered",
		msgCreateBadEmail:  "Invalid email address",
		msgCreateWeakPass:  "The password must be at least 6 characters long",
		msgCreateFailed:    "Failed to create the user",
		msgUpdateSucceeded: "Details updated successfully",
		msgUpdateFailed:    "Update failed",
		msgDeleteSucceeded: "User deleted successfully",
		msgDeleteFailed:    "Delete failed",
		msgLogoutSucceeded: "Signed out successfully",
		msgLogoutFailed:    "Sign out failed",
	},
}

// supported is in preference order; the first entry is the fallback.
var supported = []language.Tag{language.French, language.English}

var (
	messages = newCatalog()
	matcher  = language.NewMatcher(supported)
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.French))
	for tag, entries := range translations {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// ResolveLanguage picks the console language from an Accept-Language header,
// falling back to the configured locale and then to French.
func ResolveLanguage(acceptLanguage, configured string) language.Tag {
	var prefs []language.Tag
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			prefs = append(prefs, tags...)
		}
	}
	if configured != "" {
		if tag, err := language.Parse(configured); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if len(prefs) == 0 {
		return supported[0]
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// createFailureKey picks the notification for a failed creation.
func createFailureKey(err error) string {
	switch identity.KindOf(err) {
	case identity.KindDuplicateEmail:
		return msgCreateDuplicate
	case identity.KindInvalidEmail:
		return msgCreateBadEmail
	case identity.KindWeakPassword:
		return msgCreateWeakPass
	default:
		return msgCreateFailed
	}
}

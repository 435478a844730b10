package onboarding

import "fmt"

const (
	welcomeMessage = "Welcome to *Hookrelay*!\n\n" +
		"Enter your GitHub repository in the format: `username/repository_name`.\n\n" +
		"Example: `octocat/hello-world`"

	invalidRepoFormatMessage = "❌ Invalid format! Enter your repository as `username/repository_name`.\n" +
		"Example: `octocat/hello-world`"

	repoNotFoundMessage = "❌ Repository not found! Check the repository name and try again."

	secretPromptMessage = "Great! Now, enter your webhook secret or type 'none' to generate one."

	invalidSecretMessage = "❌ Invalid secret! Ensure you're entering the correct key linked to your repository.\n" +
		"Try again or type 'none' to generate a new secret."

	secretValidMessage = "✅ Your secret is valid!\n\n" +
		"Follow the steps below to set up your webhook in GitHub."

	integrationDoneMessage = "✅ Integration complete! You will now receive GitHub notifications here."

	transientErrorMessage = "⚠️ Something went wrong on our side. Please try again."
)

func completionMessage(publicURL, repo, secret string) string {
	return fmt.Sprintf(
		"✅ *GitHub Integration Complete!*\n\n"+
			"Your repository `%s` is now connected.\n"+
			"*Webhook URL:* `%s/notifications/github`\n"+
			"*Secret:* `%s`\n\n"+
			"🔹 *Setup Instructions:*\n"+
			"1. Go to your repository's settings on GitHub.\n"+
			"2. Navigate to *Webhooks* > *Add webhook*.\n"+
			"3. Use the URL above as the *Payload URL*.\n"+
			"4. Choose `application/json` as content type.\n"+
			"5. Set your secret to `%s`.\n"+
			"6. Click *Add webhook*.",
		repo, publicURL, secret, secret,
	)
}

func setupInstructionsMessage(publicURL, secret string) string {
	return fmt.Sprintf(
		"🔹 *Setup Instructions:*\n\n"+
			"1. Go to your repository's settings on GitHub.\n"+
			"2. Navigate to *Webhooks* > *Add webhook*.\n"+
			"3. Use the URL: `%s/notifications/github` as the *Payload URL*.\n"+
			"4. Choose `application/json` as content type.\n"+
			"5. Set your secret to `%s`.\n"+
			"6. Click *Add webhook*.",
		publicURL, secret,
	)
}

package dialog

import (
	"fmt"
	"strings"

	"github.com/mufaro-dev/wabank/core/bank"
)

const (
	textNamePrompt      = "Let's create your account. Please provide your full legal name"
	textNameInvalid     = "Invalid name format, provide your name again."
	textTopupAmount     = "How much do you want to topup with?"
	textAmountInvalid   = "Invalid amount, try again"
	textTopupWallet     = "Provide your Ecocash phone number. Reply with 0 to use your WhatsApp number"
	textWaitForPin      = "Wait for the PIN prompt on your phone"
	textRecipientPrompt = "Who do you want to send money to? Provide their account number or phone number"
	textSelfTransfer    = "You cannot send money to your own account, try again"
	textCancelled       = "Cancelled"
	textTransferCancel  = "Transfer cancelled"
	textTransferFailed  = "Transfer failed: insufficient funds"
	textGoodbye         = "Thank you for banking with us. Goodbye!"

	continueSuffix = "\n\nDo you want to do anything else?\n1. Yes\n2. No"
)

func menuText(name string) string {
	return fmt.Sprintf("Hi *%s*. What do you want to do today?\n\n1. Check your balance\n2. Topup account\n3. Transfer money\n4. Contact support", name)
}

func greetingPrompt(profileName string) string {
	name := profileName
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("Hi *%s*. %s", name, textNamePrompt)
}

func registrationText(acc *bank.Account) string {
	return fmt.Sprintf("Your account has been created successfully.\n\n*Name*: %s\n*Account No*: %s\n*Balance*: 0",
		capitalizeWords(acc.Name), acc.AccountNo)
}

func balanceText(acc *bank.Account) string {
	return fmt.Sprintf("*Name*: %s\n*Account No*: %s\n*Balance*: %s",
		capitalizeWords(acc.Name), acc.AccountNo, acc.Balance)
}

func supportText(contact string) string {
	return fmt.Sprintf("For assistance contact us at %s", contact)
}

func invalidWalletText(wallet string) string {
	return fmt.Sprintf("Your number *%s* is not a valid Ecocash wallet", wallet)
}

func unknownRecipientText(input string) string {
	return fmt.Sprintf("No account matches *%s*, try again", input)
}

func transferAmountPrompt(name string) string {
	return fmt.Sprintf("How much do you want to send to *%s*?", capitalizeWords(name))
}

func transferMaxText(max bank.Amount) string {
	return fmt.Sprintf("Insufficient funds. You can send at most %s", max)
}

func transferConfirmPrompt(name string, amount bank.Amount) string {
	return fmt.Sprintf("Send %s to *%s*?\n1. Confirm\n2. Cancel", amount, capitalizeWords(name))
}

func transferDoneText(balance bank.Amount) string {
	return fmt.Sprintf("Transfer successful. Your new balance is %s", balance)
}

// withContinue appends the fixed continue-confirmation suffix; every reply
// transitioning into the continue-confirmation state carries it.
func withContinue(text string) string {
	return text + continueSuffix
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

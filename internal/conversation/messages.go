package conversation

// User-facing reply texts.
const (
	msgGreeting          = "Hello! Welcome. Please choose a service."
	msgServicesHeader    = "Available services:"
	msgNoServices        = "No services found."
	msgAskDate           = "Enter the date (YYYY-MM-DD format):"
	msgChooseServiceTip  = "Please choose a service first."
	msgTimesHeader       = "Available times:"
	msgNoTimes           = "No available times found."
	msgAskName           = "Enter your name:"
	msgAskSurname        = "Enter your surname:"
	msgAskEmail          = "Enter your email:"
	msgAskPhone          = "Enter your phone number:"
	msgIncompleteDetails = "Service, date or user details are incomplete."
	msgBookingCompleted  = "Your booking has been completed."
	msgNotUnderstood     = "Command not understood. Please enter a valid command."
	msgConfirmButton     = "Confirm booking"
	msgTimeChosenFmt     = "You selected: %s. Now enter your name:"
)

package booking

// CSS selectors for the Booknetic page layout. The workflow is bound to this
// one layout; supporting other booking sites is out of scope.
const (
	selServiceCard   = ".booknetic_service_card"
	selServiceTitle  = ".booknetic_service_title_span"
	selServicePrice  = ".booknetic_service_card_price"
	selCalendarDays  = ".booknetic_calendar_days"
	selMonthName     = ".booknetic_month_name"
	selNextMonth     = ".booknetic_next_month"
	selNextStepBtn   = ".booknetic_next_step_btn"
	selTimeElement   = ".booknetic_time_element"
	selConfirmBtn    = ".booknetic_confirm_booking_btn"
	selFinishedCode  = ".booknetic_appointment_finished_code"
	selFirstNameInpt = `input[name="first_name"]`
	selLastNameInpt  = `input[name="last_name"]`
	selEmailInpt     = `input[name="email"]`
	selPhoneInpt     = `input[name="phone"]`

	attrServiceID = "data-id"
	attrPrice     = "data-price"
	attrTime      = "data-time"
)

func serviceCardSelector(serviceID string) string {
	return selServiceCard + `[` + attrServiceID + `="` + serviceID + `"]`
}

func dateCellSelector(date string) string {
	return selCalendarDays + `[data-date="` + date + `"]`
}

func timeSlotSelector(slot string) string {
	return selTimeElement + `[` + attrTime + `="` + slot + `"]`
}

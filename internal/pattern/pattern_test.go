package pattern

import "testing"

// TestIsDeliverable checks the tag=value grammar against the delivery
// naming convention, including the long-form production names.
func TestIsDeliverable(t *testing.T) {
	m := NewMatcher(nil)

	cases := []struct {
		name string
		want bool
	}{
		{"Channel=1_Platform=1_Creative-Theme=4_Template=T14_Job=320_Version-Opener=2_Length=27_Copy=3_Creator=4_Gender-Targeting=All_Geo-Targeting=US_Language-Targeting=Eng_Age-Targeting=1_Interest-Targeting=2_Actor-Gender=F_Actor-Age=26_Actor-Demo=3.mp4", true},
		{"Channel=1_Platform=2_Creative-Theme=4_Template=T14_Job=320_Version-Opener=2_Length=27_Copy=3_Creator=4_Gender-Targeting=All_Geo-Targeting=US_Language-Targeting=Eng_Age-Targeting=1_Interest-Targeting=2_Actor-Gender=F_Actor-Age=26_Actor-Demo=3.mp4", true},
		{"Channel=1_Platform=1_Creativete=T14_Job=320Version-Opener=2_Length=27_Copy=3_Creator=4_Gender-Targeting=All_Geo-Targeting=US_Language-Targeting=Eng_Age-Targeting=1_Interest-Targeting=2_Actor-Gender=F_Actor-Age=26_Actor-Demo=3.mp4", true},
		{"Channel=1_Platform=2_Job=320.mp4", true},
		{"Channel=1_Platform=2_Job=320.MP4", true},
		{"channel=1_platform=2_job=320.mp4", true},
		{"Folder", false},
		{"", false},
		{".", false},
		{"..", false},
		{".mp4", false},
		{"readme.txt", false},
		{"Channel=1_Platform=2.mp4", false},
		{"Channel=1_Platform=2_Job=320", false},
		{"=1_Platform=1_Creative-Theme=4_Template=T14_Job=320.mp4", false},
		{"0_Version-Opener=2_Length=27_Copy=3_Creator=4.mp4", false},
		{"US_Language-Targeting=Eng_Age-Targeting=1_Interest-Targeting=2.mp4", false},
	}

	for _, tc := range cases {
		if got := m.IsDeliverable(tc.name); got != tc.want {
			t.Errorf("IsDeliverable(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsDeliverableCustomExtensions(t *testing.T) {
	m := NewMatcher([]string{".mp4", ".mov"})

	if !m.IsDeliverable("Channel=1_Platform=2_Job=320.mov") {
		t.Error("expected .mov to be accepted when configured")
	}
	if m.IsDeliverable("Channel=1_Platform=2_Job=320.avi") {
		t.Error("expected .avi to be rejected")
	}
}

func TestJobNumber(t *testing.T) {
	cases := []struct {
		folder string
		want   int
		ok     bool
	}{
		{"J606_MagicSink", 606, true},
		{"j343_Survivor_RoofMoneyCount", 343, true},
		{"J999_Test_Job", 999, true},
		{"Exports", 0, false},
		{"Jobs_Dev", 0, false},
		{"J_NoDigits", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := JobNumber(tc.folder)
		if got != tc.want || ok != tc.ok {
			t.Errorf("JobNumber(%q) = (%d, %v), want (%d, %v)", tc.folder, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAdSetName(t *testing.T) {
	if got := AdSetName("Channel=1_Platform=1_Job=606.mp4"); got != "Channel=1_Platform=1_Job=606" {
		t.Errorf("AdSetName = %q", got)
	}
	if got := AdSetName("noextension"); got != "noextension" {
		t.Errorf("AdSetName = %q", got)
	}
}

func TestCampaignSuffix(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/Jobs/J606_MagicSink/Exports/T7/Channel=1_Job=606.mp4", "MagicSink"},
		{"/Jobs_Dev/J343_Survivor_RoofMoneyCount/Exports/T7/V2/file.mp4", "Survivor_RoofMoneyCount"},
		{"/Jobs/NoJobFolder/file.mp4", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := CampaignSuffix(tc.path); got != tc.want {
			t.Errorf("CampaignSuffix(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestTargetCampaignName(t *testing.T) {
	if got := TargetCampaignName("US-AND-MAI-ABO-J", 606, ""); got != "US-AND-MAI-ABO-J606" {
		t.Errorf("TargetCampaignName = %q", got)
	}
	if got := TargetCampaignName("US-AND-MAI-ABO-J", 606, "MagicSink"); got != "US-AND-MAI-ABO-J606_MagicSink" {
		t.Errorf("TargetCampaignName = %q", got)
	}
}
